package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type check struct {
	input string
	ok    bool
}

func runChecks(t *testing.T, validate func(string) error, checks map[string]check) {
	t.Helper()
	for name, c := range checks {
		err := validate(c.input)
		if c.ok {
			assert.NoError(t, err, name)
		} else {
			assert.Error(t, err, name)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	runChecks(t, ValidatePassword, map[string]check{
		"eight ascii":        {"password", true},
		"seven":              {"passwor", false},
		"multibyte is runes": {"ÅÅÅÅÅÅÅÅ", true},
		"over 128":           {strings.Repeat("a", 129), false},
	})
}

func TestValidateStrongPassword(t *testing.T) {
	t.Parallel()
	runChecks(t, ValidateStrongPassword, map[string]check{
		"mixed classes":      {"SecurePass12!@", true},
		"twelve":             {"Abcdefghij1!", true},
		"128":                {"A" + strings.Repeat("b", 125) + "1!", true},
		"eleven":             {"Small1!abcd", false},
		"129":                {"A" + strings.Repeat("b", 126) + "1!", false},
		"no upper":           {"securepass12!", false},
		"no lower":           {"SECUREPASS12!", false},
		"no digit":           {"SecurePass!!", false},
		"no symbol":          {"SecurePass123", false},
		"digits and symbols": {"1234567890!@", false},
		"non-ascii letters":  {"ÅngstromPass12!", true},
	})
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	runChecks(t, ValidateUsername, map[string]check{
		"word chars":  {"jake_2024", true},
		"one letter":  {"j", true},
		"dot":         {"jake.doe", true},
		"whitespace":  {"   ", false},
		"empty":       {"", false},
		"at sign":     {"jake@home", false},
		"inner space": {"jake doe", false},
		"over 64":     {strings.Repeat("a", 65), false},
	})
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	// 64 local + "@" + 185 + ".com" is the 254 character maximum.
	longest := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	runChecks(t, ValidateEmail, map[string]check{
		"plain":     {"jake@jake.jake", true},
		"254":       {longest, true},
		"255":       {"a" + longest, false},
		"no at":     {"jake.jake", false},
		"no domain": {"jake@", false},
		"empty":     {"", false},
	})
}

func TestValidateCommentBody(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateCommentBody("Thank you so much!"))
	assert.Error(t, ValidateCommentBody(" \n\t"))
	assert.Error(t, ValidateCommentBody(strings.Repeat("x", MaxCommentLength+1)))
}
