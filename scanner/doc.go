/*
Package scanner provides heuristic OWASP Top 10 static analysis.

Scan runs source text through five fixed, ordered rule categories (SQL
injection, XSS, command injection, path traversal, SSRF) and produces a
Report with sequential finding IDs, 1-based line locations, per-category
remediation guidance, and a 0-100 compliance score.

The scanner is a regex matcher over raw text, not a parser: false
positives and false negatives are expected. It never fails on input;
a malformed rule pattern panics at package load.
*/
package scanner
