//go:build ruleguard

// Package gorules holds cropdoc's ruleguard checks, run by golangci-lint
// through gocritic.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StdErrorsNew flags plain string errors. Errors leave a package through
// internal/errors so they carry a component and a category for the API
// status mapping and for telemetry.
//
//	return errors.Newf("unknown cache backend %q", name).
//		Component("cache").
//		Category(errors.CategoryConfiguration).
//		Build()
func StdErrorsNew(m dsl.Matcher) {
	m.Match(`errors.New($msg)`).
		Where(m["msg"].Type.Is("string") && !m.File().Name.Matches(`_test\.go$`)).
		Report("use errors.Newf(...).Component(...).Category(...).Build() from internal/errors")
}

// PrintLogging flags stdlib logging and stray prints in library packages.
// Use the module logger instead:
//
//	logger.Global().Module("analysis").Info("scan saved", logger.String("id", id))
func PrintLogging(m dsl.Matcher) {
	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`log.Fatalf($*_)`,
		`fmt.Println($*_)`,
		`fmt.Printf($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`)).
		Report("use the module logger from internal/logger instead of printing")
}

// DefaultHTTPClient flags calls through http.DefaultClient, which has no
// timeout. Outbound calls go through internal/httpclient.
func DefaultHTTPClient(m dsl.Matcher) {
	m.Match(
		`http.Get($*_)`,
		`http.Post($*_)`,
		`http.Head($*_)`,
		`http.DefaultClient.Do($*_)`,
	).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report("use internal/httpclient, http.DefaultClient has no timeout")
}

// ContextTODO flags placeholder contexts left in non-test code.
func ContextTODO(m dsl.Matcher) {
	m.Match(`context.TODO()`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report("pass the caller's context instead of context.TODO()")
}

// TestContext flags context.Background in tests; t.Context is cancelled when
// the test ends.
func TestContext(m dsl.Matcher) {
	m.Match(`context.Background()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() in tests")
}
