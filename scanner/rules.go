package scanner

import "regexp"

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rule is one declarative detection pattern.
type Rule struct {
	Pattern *regexp.Regexp
	Title   string
}

// Category groups rules that share an OWASP tag, a fixed severity, and
// a fixed remediation. Category order is part of the contract: finding
// IDs are assigned in table order, so reordering changes results.
type Category struct {
	Name        string
	Severity    Severity
	Remediation string
	Rules       []Rule
}

func rule(pattern, title string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Title: title}
}

// categories holds the five fixed detection tables. Patterns are
// compiled at package load; a bad pattern is a startup bug, not a
// per-call error.
var categories = []Category{
	{
		Name:        "A03:2021-Injection-SQL",
		Severity:    SeverityCritical,
		Remediation: "Use parameterized queries or ORM instead of string concatenation",
		Rules: []Rule{
			rule(`(?i)\bSELECT\b.*\bFROM\b.*\bWHERE\b.*=\s*['"]?\s*\+`, "SQL concatenation"),
			rule(`(?i)\bINSERT\b.*\bINTO\b.*\bVALUES\b.*\+`, "SQL INSERT concatenation"),
			rule(`(?i)\bUPDATE\b.*\bSET\b.*=.*\+`, "SQL UPDATE concatenation"),
			rule(`(?i)\bDELETE\b.*\bFROM\b.*\bWHERE\b.*\+`, "SQL DELETE concatenation"),
			rule(`(?i)execute\s*\(\s*['"].*\+`, "Dynamic SQL execution"),
			rule(`(?i)f['"].*\{.*\}.*SELECT`, "F-string SQL query"),
			rule(`(?i)f['"].*\{.*\}.*INSERT`, "F-string SQL query"),
			rule(`(?i)f['"].*\{.*\}.*UPDATE`, "F-string SQL query"),
			rule(`(?i)f['"].*\{.*\}.*DELETE`, "F-string SQL query"),
		},
	},
	{
		Name:        "A03:2021-Injection-XSS",
		Severity:    SeverityCritical,
		Remediation: "Sanitize user input and use Content Security Policy",
		Rules: []Rule{
			rule(`(?i)innerHTML\s*=`, "Direct innerHTML assignment"),
			rule(`(?i)document\.write\s*\(`, "document.write usage"),
			rule(`(?i)eval\s*\(`, "eval() usage"),
			rule(`<script.*>.*</script>`, "Inline script tag"),
			rule(`(?i)on\w+\s*=\s*['"]`, "Inline event handler"),
		},
	},
	{
		Name:        "A03:2021-Injection-CMD",
		Severity:    SeverityCritical,
		Remediation: "Avoid shell=True and use array-based subprocess calls",
		Rules: []Rule{
			rule(`(?i)os\.system\s*\(.*\+`, "os.system with concatenation"),
			rule(`(?i)subprocess\.(?:run|call|Popen)\s*\(.*\+`, "subprocess with concatenation"),
			rule(`(?i)exec\s*\(.*\+`, "exec with concatenation"),
			rule(`(?i)shell\s*=\s*True`, "shell=True in subprocess"),
			rule(`(?i)os\.popen\s*\(`, "os.popen usage"),
		},
	},
	{
		Name:        "A01:2021-Broken Access Control",
		Severity:    SeverityHigh,
		Remediation: "Validate and sanitize all file paths, use allowlists",
		Rules: []Rule{
			rule(`\.\./`, "Parent directory traversal"),
			rule(`\.\.\\\\`, "Windows parent directory traversal"),
			rule(`(?i)/etc/passwd`, "Access to /etc/passwd"),
			rule(`(?i)/etc/shadow`, "Access to /etc/shadow"),
			rule(`(?i)C:\\\\Windows`, "Windows system directory"),
		},
	},
	{
		Name:        "A10:2021-SSRF",
		Severity:    SeverityHigh,
		Remediation: "Validate URLs against allowlist, block internal IPs",
		Rules: []Rule{
			rule(`(?i)requests\.(?:get|post|put|delete)\s*\(.*\+`, "HTTP request with concatenation"),
			rule(`(?i)urllib\.request\.urlopen\s*\(.*\+`, "urlopen with concatenation"),
			rule(`(?i)http\.client`, "http.client usage"),
			rule(`(?i)127\.0\.0\.1|localhost`, "Localhost access"),
			rule(`(?i)169\.254\.`, "AWS metadata IP"),
		},
	},
}

// Categories returns the detection tables for inspection and testing.
func Categories() []Category {
	return categories
}
