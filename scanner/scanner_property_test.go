package scanner

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// genSourceCode mixes benign and suspicious lines so scans exercise
// every category table.
func genSourceCode() *rapid.Generator[string] {
	lines := []string{
		`x = 1 + 2`,
		`def handler(request): pass`,
		`total = sum(values)`,
		`query = "SELECT * FROM users WHERE id=' + user_id`,
		`cursor.execute("DELETE FROM logs WHERE age > " + days)`,
		`element.innerHTML = payload`,
		`eval(user_input)`,
		`subprocess.run("ls " + directory, shell=True)`,
		`open("../" + name)`,
		`requests.get("http://" + host)`,
		`conn = http.client.HTTPConnection(target)`,
		`ping("127.0.0.1")`,
	}
	return rapid.Custom(func(t *rapid.T) string {
		n := rapid.IntRange(0, 8).Draw(t, "lines")
		picked := make([]string, 0, n)
		for i := 0; i < n; i++ {
			picked = append(picked, rapid.SampledFrom(lines).Draw(t, "line"))
		}
		return strings.Join(picked, "\n")
	})
}

func TestProperty_Scanner_Idempotence(t *testing.T) {
	s := NewScanner(nil)

	rapid.Check(t, func(rt *rapid.T) {
		code := genSourceCode().Draw(rt, "code")

		first := s.Scan(code)
		second := s.Scan(code)

		if len(first.Vulnerabilities) != len(second.Vulnerabilities) {
			rt.Fatalf("finding count drifted: %d vs %d",
				len(first.Vulnerabilities), len(second.Vulnerabilities))
		}
		for i := range first.Vulnerabilities {
			if first.Vulnerabilities[i] != second.Vulnerabilities[i] {
				rt.Fatalf("finding %d drifted: %+v vs %+v",
					i, first.Vulnerabilities[i], second.Vulnerabilities[i])
			}
		}
		if first.ComplianceScore != second.ComplianceScore || first.Valid != second.Valid {
			rt.Fatalf("verdict drifted: (%v,%v) vs (%v,%v)",
				first.Valid, first.ComplianceScore, second.Valid, second.ComplianceScore)
		}
	})
}

func TestProperty_Scanner_ScoreAndValidity(t *testing.T) {
	s := NewScanner(nil)

	rapid.Check(t, func(rt *rapid.T) {
		code := genSourceCode().Draw(rt, "code")
		report := s.Scan(code)

		if report.ComplianceScore < 0 || report.ComplianceScore > 100 {
			rt.Fatalf("score out of range: %v", report.ComplianceScore)
		}

		var critical, high, medium int
		for _, v := range report.Vulnerabilities {
			switch v.Severity {
			case SeverityCritical:
				critical++
			case SeverityHigh:
				high++
			case SeverityMedium:
				medium++
			}
		}
		want := 100.0 - float64(critical*25) - float64(high*15) - float64(medium*5)
		if want < 0 {
			want = 0
		}
		if report.ComplianceScore != want {
			rt.Fatalf("score %v does not match severity counts (want %v)",
				report.ComplianceScore, want)
		}
		if report.Valid != (critical == 0 && high == 0) {
			rt.Fatalf("validity %v inconsistent with counts (critical=%d high=%d)",
				report.Valid, critical, high)
		}
	})
}

func TestProperty_Scanner_SequentialIDs(t *testing.T) {
	s := NewScanner(nil)

	rapid.Check(t, func(rt *rapid.T) {
		code := genSourceCode().Draw(rt, "code")
		report := s.Scan(code)

		for i, v := range report.Vulnerabilities {
			want := fmt.Sprintf("OWASP-%04d", i+1)
			if v.ID != want {
				rt.Fatalf("finding %d has id %q, want %q", i, v.ID, want)
			}
		}
	})
}
