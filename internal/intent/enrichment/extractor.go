// Package enrichment extracts visitor identity from form submissions and
// merges it into previously recorded intent events.
package enrichment

import (
	"strings"

	"crm_intent_backend/platform/phone"
)

// ContactInfo is the identity extracted from a form payload.
type ContactInfo struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Company   string
}

// FullName joins the name parts, either of which may be empty.
func (c ContactInfo) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// HasContactInfo reports whether enough identity was found to act on.
// Email is the anchor field; names or phone alone are not actionable.
func (c ContactInfo) HasContactInfo() bool {
	return c.Email != ""
}

// Field alias tables. Form builders name their fields freely, so matching
// runs on normalized keys: lowercased with dashes, underscores, and spaces
// stripped, which lets one alias cover email_address, Email-Address, and
// "email address" at once.
var (
	emailAliases     = []string{"email", "emailaddress", "e-mail", "mail", "emailfield", "youremail", "workemail", "businessemail"}
	fullNameAliases  = []string{"name", "fullname", "yourname", "contactname"}
	firstNameAliases = []string{"firstname", "fname", "givenname", "first"}
	lastNameAliases  = []string{"lastname", "lname", "surname", "familyname", "last"}
	phoneAliases     = []string{"phone", "phonenumber", "telephone", "tel", "mobile", "mobilenumber", "cell"}
	companyAliases   = []string{"company", "companyname", "organization", "organisation", "business", "employer"}
)

// ExtractContactInfo scans a form payload for identity fields.
// Both top-level keys and a nested "data" object are searched; top-level
// values win when both carry the same field.
func ExtractContactInfo(payload map[string]any) ContactInfo {
	info := ContactInfo{}
	if payload == nil {
		return info
	}

	fields := normalizeFields(payload)
	if nested, ok := payload["data"].(map[string]any); ok {
		// Top-level values win over nested ones.
		for k, v := range normalizeFields(nested) {
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}

	info.Email = findAlias(fields, emailAliases)
	info.FirstName = findAlias(fields, firstNameAliases)
	info.LastName = findAlias(fields, lastNameAliases)
	info.Phone = findAlias(fields, phoneAliases)
	info.Company = findAlias(fields, companyAliases)

	// A combined name field splits on the first space when the explicit
	// parts are absent.
	if info.FirstName == "" && info.LastName == "" {
		if full := findAlias(fields, fullNameAliases); full != "" {
			info.FirstName, info.LastName = splitName(full)
		}
	}
	// Forms sometimes put the whole name in the first-name field.
	if info.LastName == "" && strings.Contains(strings.TrimSpace(info.FirstName), " ") {
		info.FirstName, info.LastName = splitName(info.FirstName)
	}

	info.Email = strings.ToLower(info.Email)
	if info.Phone != "" {
		info.Phone = phone.NormalizeE164(info.Phone)
	}
	return info
}

// normalizeFields flattens string values under their normalized keys.
// The first value seen for a normalized key wins.
func normalizeFields(payload map[string]any) map[string]string {
	fields := make(map[string]string, len(payload))
	for key, value := range payload {
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		norm := normalizeKey(key)
		if _, exists := fields[norm]; !exists {
			fields[norm] = strings.TrimSpace(s)
		}
	}
	return fields
}

// findAlias checks aliases in priority order, so "email" beats "mail" even
// when a payload carries both.
func findAlias(fields map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := fields[normalizeKey(alias)]; ok {
			return v
		}
	}
	return ""
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	replacer := strings.NewReplacer("-", "", "_", "", " ", "")
	return replacer.Replace(key)
}

func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
