package memberauth

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Field keys reported by registration and password flows.
const (
	FieldIDNumber      = "id_number"
	FieldFirstName     = "first_name"
	FieldMiddleName    = "middle_name"
	FieldLastName      = "last_name"
	FieldNameExtension = "name_extension"
	FieldBirthdate     = "birthdate"
	FieldSex           = "sex"
	FieldStreet        = "street"
	FieldBarangay      = "barangay"
	FieldCity          = "city_municipality"
	FieldProvince      = "province"
	FieldCountry       = "country"
	FieldZipCode       = "zip_code"
	FieldEmail         = "email"
	FieldUsername      = "username"
	FieldPassword      = "password"
	FieldConfirmPass   = "confirm_password"
	FieldQuestions     = "security_questions"
)

var (
	idNumberPattern  = regexp.MustCompile(`^\d{4}-\d{4}$`)
	nameCharset      = regexp.MustCompile(`^[a-zA-Z\s.\-]*$`)
	nameTokenPattern = regexp.MustCompile(`^[A-Z][a-z]*$`)
	extensionCharset = regexp.MustCompile(`^[a-zA-Z0-9.\s]*$`)
	addressCharset   = regexp.MustCompile(`^[a-zA-Z0-9\s.,\-]*$`)
	zipPattern       = regexp.MustCompile(`^[0-9]{4,10}$`)
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

var allowedExtensions = map[string]struct{}{
	"i": {}, "ii": {}, "iii": {}, "iv": {}, "v": {},
	"vi": {}, "vii": {}, "viii": {}, "ix": {}, "x": {},
	"jr": {}, "sr": {}, "jr.": {}, "sr.": {},
}

// validateRegistration runs every pure field rule and accumulates all
// violations. Uniqueness checks happen separately in the Register flow so a
// fully invalid form never touches the store for username/email lookups.
func validateRegistration(cfg Config, in RegistrationInput, now time.Time) FieldErrors {
	fieldErrs := FieldErrors{}

	if msg := validateIDNumberFormat(in.IDNumber); msg != "" {
		fieldErrs.set(FieldIDNumber, msg)
	}

	if msg := validateName(in.FirstName, true); msg != "" {
		fieldErrs.set(FieldFirstName, msg)
	}
	if msg := validateName(in.MiddleName, false); msg != "" {
		fieldErrs.set(FieldMiddleName, msg)
	}
	if msg := validateName(in.LastName, true); msg != "" {
		fieldErrs.set(FieldLastName, msg)
	}
	if msg := validateNameExtension(in.NameExtension); msg != "" {
		fieldErrs.set(FieldNameExtension, msg)
	}

	if msg := validateBirthdate(in.Birthdate, cfg.Registration.MinAge, now); msg != "" {
		fieldErrs.set(FieldBirthdate, msg)
	}

	if strings.TrimSpace(in.Sex) == "" {
		fieldErrs.set(FieldSex, "Sex is required.")
	}

	if msg := validateAddressPart(in.Street, false); msg != "" {
		fieldErrs.set(FieldStreet, msg)
	}
	if msg := validateAddressPart(in.Barangay, true); msg != "" {
		fieldErrs.set(FieldBarangay, msg)
	}
	if msg := validateAddressPart(in.City, true); msg != "" {
		fieldErrs.set(FieldCity, msg)
	}
	if msg := validateAddressPart(in.Province, true); msg != "" {
		fieldErrs.set(FieldProvince, msg)
	}
	if msg := validateAddressPart(in.Country, true); msg != "" {
		fieldErrs.set(FieldCountry, msg)
	}
	if !zipPattern.MatchString(in.ZipCode) {
		fieldErrs.set(FieldZipCode, "Zip code must be 4 to 10 digits.")
	}

	if msg := validateEmailFormat(in.Email); msg != "" {
		fieldErrs.set(FieldEmail, msg)
	}
	if msg := validateUsernameFormat(in.Username); msg != "" {
		fieldErrs.set(FieldUsername, msg)
	}

	if msg := validatePasswordStrength(in.Password, cfg.Password.MinLength); msg != "" {
		fieldErrs.set(FieldPassword, msg)
	}
	if in.Password != in.ConfirmPass {
		fieldErrs.set(FieldConfirmPass, "Passwords do not match.")
	}

	if msg := validateSecurityAnswers(in.SecurityAnswers); msg != "" {
		fieldErrs.set(FieldQuestions, msg)
	}

	return fieldErrs
}

func validateIDNumberFormat(idNumber string) string {
	if !idNumberPattern.MatchString(idNumber) {
		return "ID number must be in the format 0000-0000."
	}
	return ""
}

// validateName enforces the shared name rules: allowed charset, no doubled
// spaces, no shouting, no three identical letters in a row, and per-word
// capitalization. A middle name may be empty; first and last may not.
func validateName(name string, required bool) string {
	if name == "" {
		if required {
			return "This field is required."
		}
		return ""
	}

	if !nameCharset.MatchString(name) {
		return "Only letters, spaces, periods, and hyphens are allowed."
	}
	if strings.Contains(name, "  ") {
		return "Name must not contain consecutive spaces."
	}
	if len(name) > 1 && name == strings.ToUpper(name) && strings.ContainsFunc(name, unicode.IsLetter) {
		return "Name must not be in all capital letters."
	}
	if hasTripleRepeat(name) {
		return "Name must not repeat the same letter three times in a row."
	}

	for _, token := range strings.Fields(name) {
		if !nameTokenPattern.MatchString(token) {
			return "Each word must start with a capital letter followed by lowercase letters."
		}
	}

	return ""
}

// hasTripleRepeat reports three consecutive identical letters ignoring case.
// RE2 has no backreferences, so this is a plain scan.
func hasTripleRepeat(s string) bool {
	runes := []rune(strings.ToLower(s))
	for i := 2; i < len(runes); i++ {
		if unicode.IsLetter(runes[i]) && runes[i] == runes[i-1] && runes[i] == runes[i-2] {
			return true
		}
	}
	return false
}

// validateNameExtension accepts the catalog of common suffixes outright;
// anything else only has to pass the charset check.
func validateNameExtension(ext string) string {
	if ext == "" {
		return ""
	}
	if _, ok := allowedExtensions[strings.ToLower(strings.TrimSpace(ext))]; ok {
		return ""
	}
	if !extensionCharset.MatchString(ext) {
		return "Name extension contains invalid characters."
	}
	return ""
}

func validateBirthdate(birthdate string, minAge int, now time.Time) string {
	if birthdate == "" {
		return "Birthdate is required."
	}

	born, err := time.Parse("2006-01-02", birthdate)
	if err != nil {
		return "Birthdate must be a valid date in YYYY-MM-DD format."
	}
	if born.After(now) {
		return "Birthdate must not be in the future."
	}
	if ageAt(born, now) < minAge {
		return "You must be at least 18 years old to register."
	}
	return ""
}

// ageAt computes calendar age: the year difference, minus one when the
// birthday has not yet occurred in the current year.
func ageAt(born time.Time, now time.Time) int {
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age
}

// validateAddressPart checks one address component. The street/purok line is
// optional; barangay, city/municipality, province, and country each carry
// their own required error so a sparse form reports every missing part.
func validateAddressPart(part string, required bool) string {
	if strings.TrimSpace(part) == "" {
		if required {
			return "This field is required."
		}
		return ""
	}
	if !addressCharset.MatchString(part) {
		return "Only letters, digits, spaces, periods, commas, and hyphens are allowed."
	}
	return ""
}

func validateEmailFormat(email string) string {
	if email == "" {
		return "Email is required."
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "Invalid email address."
	}
	return ""
}

func validateUsernameFormat(username string) string {
	if username == "" {
		return "Username is required."
	}
	if !usernamePattern.MatchString(username) {
		return "Username may only contain letters, digits, and underscores."
	}
	return ""
}

// validatePasswordStrength reports the first unmet requirement: length, then
// the specific missing character classes.
func validatePasswordStrength(password string, minLength int) string {
	if len(password) < minLength {
		return "Password must be at least 8 characters long."
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	var missing []string
	if !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if !hasDigit {
		missing = append(missing, "a digit")
	}
	if !hasSymbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		return "Password must contain " + strings.Join(missing, ", ") + "."
	}

	return ""
}

func validateSecurityAnswers(answers [3]SecurityAnswerInput) string {
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		if a.QuestionID == "" || strings.TrimSpace(a.Answer) == "" {
			return "All three security questions must be answered."
		}
		if !validQuestionID(a.QuestionID) {
			return "Unknown security question selected."
		}
		if _, dup := seen[a.QuestionID]; dup {
			return "Security questions must be three different questions."
		}
		seen[a.QuestionID] = struct{}{}
	}
	return ""
}
