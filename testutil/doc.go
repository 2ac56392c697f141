/*
Package testutil provides shared helpers for tests: bounded test
contexts, temporary project roots for boundary-sensitive tests, and
JSON conveniences.

	root := testutil.TempProject(t, map[string]string{
		"src/main.py": "print('ok')",
	})

	ctx := testutil.TestContext(t)
*/
package testutil
