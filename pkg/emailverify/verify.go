// Package emailverify checks deliverability of email addresses.
package emailverify

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/rotisserie/eris"
)

// Result of a verification probe.
type Result struct {
	Email       string
	Deliverable bool
	Reason      string
}

// Verifier probes an address for deliverability.
type Verifier interface {
	Verify(ctx context.Context, email string) (*Result, error)
}

type probeVerifier struct {
	resolver *net.Resolver
}

// New creates a Verifier that checks syntax and the recipient
// domain's MX records.
func New() Verifier {
	return &probeVerifier{resolver: net.DefaultResolver}
}

func (v *probeVerifier) Verify(ctx context.Context, email string) (*Result, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, eris.New("emailverify: email required")
	}

	if err := checkmail.ValidateFormat(email); err != nil {
		return &Result{Email: email, Deliverable: false, Reason: "invalid format"}, nil
	}

	at := strings.LastIndex(email, "@")
	domain := email[at+1:]

	mx, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && (dnsErr.IsNotFound || dnsErr.IsTemporary) {
			if dnsErr.IsTemporary {
				return nil, eris.Wrap(err, "emailverify: mx lookup")
			}
			return &Result{Email: email, Deliverable: false, Reason: "no mx records"}, nil
		}
		return nil, eris.Wrap(err, "emailverify: mx lookup")
	}
	if len(mx) == 0 {
		return &Result{Email: email, Deliverable: false, Reason: "no mx records"}, nil
	}

	return &Result{Email: email, Deliverable: true}, nil
}
