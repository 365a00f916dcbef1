package etims

import (
	"fmt"
	"strings"
)

type Environment int

const (
	Sandbox Environment = iota
	Prod
)

// BaseURL is the fiscalisation API host for the environment.
func (e Environment) BaseURL() string {
	switch e {
	case Prod:
		return "https://deitax.deitiestech.com"
	case Sandbox:
		return "https://sandbox.deitax.deitiestech.com"
	}
	panic("Invalid environment")
}

// VerifyURL is the tax authority host that resolves receipt verification links.
func (e Environment) VerifyURL() string {
	switch e {
	case Prod:
		return "https://etims.kra.go.ke"
	case Sandbox:
		return "https://etims-sbx.kra.go.ke"
	}
	panic("Invalid environment")
}

// InvoicesEndpoint is the invoice submission endpoint below BaseURL.
func (e Environment) InvoicesEndpoint() string {
	return strings.TrimRight(e.BaseURL(), "/") + "/api/v1/invoices"
}

func (e Environment) Name() string {
	switch e {
	case Prod:
		return "prod"
	case Sandbox:
		return "sandbox"
	}
	panic("Invalid environment")
}

func (e Environment) String() string {
	return e.Name()
}

func (e *Environment) UnmarshalText(text []byte) error {
	val := strings.ToLower(strings.TrimSpace(string(text)))

	switch val {
	case "prod", "production":
		*e = Prod
	case "sandbox", "test", "":
		*e = Sandbox
	default:
		return fmt.Errorf("invalid ETIMS environment: %q (allowed: prod, sandbox)", val)
	}
	return nil
}
