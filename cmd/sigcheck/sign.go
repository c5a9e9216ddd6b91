package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattjoyce/sigcheck/internal/config"
	"github.com/mattjoyce/sigcheck/internal/signature"
)

// headerFlags collects repeated --header "Name: value" flags.
type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ", ") }

func (h *headerFlags) Set(v string) error {
	if !strings.Contains(v, ":") {
		return fmt.Errorf("header %q must be in \"Name: value\" form", v)
	}
	*h = append(*h, v)
	return nil
}

func (h headerFlags) toHeaders() signature.Headers {
	out := signature.Headers{}
	for _, kv := range h {
		name, value, _ := strings.Cut(kv, ":")
		// First value wins, same as for live requests.
		if _, seen := out[strings.ToLower(strings.TrimSpace(name))]; seen {
			continue
		}
		out.Set(name, strings.TrimSpace(value))
	}
	return out
}

type requestFlags struct {
	secret        *string
	method        *string
	path          *string
	signedHeaders *string
	body          *string
	bodyFile      *string
	headers       headerFlags
}

func flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func addRequestFlags(fs *flag.FlagSet) *requestFlags {
	rf := &requestFlags{
		secret:        fs.String("secret", "", "Signing secret (default $"+config.EnvSigningSecret+")"),
		method:        fs.String("method", "POST", "HTTP method"),
		path:          fs.String("path", "/", "Request target as sent, including any query string"),
		signedHeaders: fs.String("signed-headers", "", "Comma separated list of signed header names"),
		body:          fs.String("body", "", "Request body"),
		bodyFile:      fs.String("body-file", "", "Read request body from file (- for stdin)"),
	}
	fs.Var(&rf.headers, "header", "Request header \"Name: value\" (repeatable)")
	return rf
}

func (rf *requestFlags) resolveSecret() string {
	if *rf.secret != "" {
		return *rf.secret
	}
	return os.Getenv(config.EnvSigningSecret)
}

func (rf *requestFlags) readBody() ([]byte, error) {
	switch *rf.bodyFile {
	case "":
		return []byte(*rf.body), nil
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(*rf.bodyFile)
	}
}

func (rf *requestFlags) request(headers signature.Headers) (signature.Request, error) {
	body, err := rf.readBody()
	if err != nil {
		return signature.Request{}, fmt.Errorf("read body: %w", err)
	}
	return signature.Request{
		Method:  strings.ToUpper(*rf.method),
		Path:    *rf.path,
		Headers: headers,
		Body:    body,
	}, nil
}

func runSign(args []string) int {
	fs := flagSet("sign")
	rf := addRequestFlags(fs)
	showCanonical := fs.Bool("show-canonical", false, "Print the canonical string before the signature")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := signature.NewVerifier(rf.resolveSecret())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (use --secret or $%s)\n", err, config.EnvSigningSecret)
		return 2
	}
	req, err := rf.request(rf.headers.toHeaders())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	signed := signature.ParseSignedHeaders(*rf.signedHeaders)
	if *showCanonical {
		fmt.Printf("%s\n---\n", req.Canonical(signed))
	}
	fmt.Printf("%s: %s\n", signature.HeaderSignedHeaders, strings.Join(signed, ","))
	fmt.Printf("%s: %s\n", signature.HeaderSignature, v.Sign(req, signed))
	return 0
}

// runVerify exits 0 for a valid signature, 1 for an invalid one, and 2 when
// no secret is configured.
func runVerify(args []string) int {
	fs := flagSet("verify")
	rf := addRequestFlags(fs)
	claimed := fs.String("signature", "", "Claimed signature (default: the "+signature.HeaderSignature+" header)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	v, err := signature.NewVerifier(rf.resolveSecret())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (use --secret or $%s)\n", err, config.EnvSigningSecret)
		return 2
	}
	headers := rf.headers.toHeaders()
	if *claimed != "" {
		headers.Set(signature.HeaderSignature, *claimed)
	}
	if *rf.signedHeaders != "" {
		headers.Set(signature.HeaderSignedHeaders, *rf.signedHeaders)
	}
	req, err := rf.request(headers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := v.Check(req); err != nil {
		fmt.Printf("invalid: %v\n", err)
		return 1
	}
	fmt.Println("valid")
	return 0
}
