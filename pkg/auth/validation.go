package auth

import (
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/tendant/simple-projects/internal/config"
	"github.com/tendant/simple-projects/pkg/domain"
)

// Common disposable email domains to block (can be extended)
var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"10minutemail.com":  true,
	"guerrillamail.com": true,
	"mailinator.com":    true,
	"throwaway.email":   true,
}

// Email validation regex (stricter than RFC 5322 for practical use)
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const (
	maxEmailLength = 254 // RFC 5321
	maxNameLength  = 255
)

// PasswordPolicy defines password complexity requirements.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

// Check returns the first unmet requirement, or "".
func (p *PasswordPolicy) Check(password string) string {
	if p == nil {
		return ""
	}
	switch {
	case p.MinLength > 0 && len(password) < p.MinLength:
		return fmt.Sprintf("must be at least %d characters long", p.MinLength)
	case p.RequireUppercase && !containsRune(password, unicode.IsUpper):
		return "must contain at least one uppercase letter"
	case p.RequireLowercase && !containsRune(password, unicode.IsLower):
		return "must contain at least one lowercase letter"
	case p.RequireNumber && !containsRune(password, unicode.IsDigit):
		return "must contain at least one number"
	case p.RequireSpecial && !containsRune(password, isSpecial):
		return "must contain at least one special character"
	}
	return ""
}

func containsRune(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if pred(r) {
			return true
		}
	}
	return false
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

// Validator checks and normalizes credentials input.
type Validator struct {
	Policy          *PasswordPolicy
	StrictEmail     bool
	BlockDisposable bool
}

// NewValidator creates a validator from config.
func NewValidator(policy config.PasswordPolicyConfig, v config.ValidationConfig) *Validator {
	return &Validator{
		Policy:          NewPasswordPolicy(policy),
		StrictEmail:     v.StrictEmailValidation,
		BlockDisposable: v.BlockDisposableEmail,
	}
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	CompanyName string
	Name        string
	Email       string
	Password    string
}

// Registration returns the normalized input, or a *domain.ValidationError
// listing every failing field.
func (v *Validator) Registration(in RegisterInput) (RegisterInput, error) {
	verr := &domain.ValidationError{}

	in.CompanyName = SanitizeName(in.CompanyName)
	if msg := checkName(in.CompanyName); msg != "" {
		verr.Add("company_name", msg)
	}

	in.Name = SanitizeName(in.Name)
	if msg := checkName(in.Name); msg != "" {
		verr.Add("name", msg)
	}

	in.Email = NormalizeEmail(in.Email)
	if msg := v.checkEmail(in.Email); msg != "" {
		verr.Add("email", msg)
	}

	if in.Password == "" {
		verr.Add("password", "is required")
	} else if msg := v.Policy.Check(in.Password); msg != "" {
		verr.Add("password", msg)
	}

	if verr.HasErrors() {
		return in, verr
	}
	return in, nil
}

// Credentials checks that a login payload is complete.
func (v *Validator) Credentials(email, password string) error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(email) == "" {
		verr.Add("email", "is required")
	}
	if password == "" {
		verr.Add("password", "is required")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func checkName(name string) string {
	if name == "" {
		return "is required"
	}
	if len(name) > maxNameLength {
		return fmt.Sprintf("must be at most %d characters long", maxNameLength)
	}
	return ""
}

func (v *Validator) checkEmail(email string) string {
	if email == "" {
		return "is required"
	}
	if len(email) > maxEmailLength {
		return fmt.Sprintf("is too long (max %d characters)", maxEmailLength)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "is not a valid email address"
	}
	if v.StrictEmail && !emailRegex.MatchString(addr.Address) {
		return "is not a valid email address"
	}
	if v.BlockDisposable && disposableDomains[emailDomain(addr.Address)] {
		return "disposable email addresses are not allowed"
	}
	return ""
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return email[at+1:]
}

// SanitizeName trims a name, drops control characters and escapes HTML.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return html.EscapeString(name)
}
