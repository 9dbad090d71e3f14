//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo suggests wg.Go over the Add/Done pair (Go 1.25).
//
//	wg.Go(func() { worker(ctx) })
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("sync.WaitGroup") || m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { $body })").
		Suggest("$wg.Go(func() { $body })")
}

// SortSlices suggests the generic slices helpers over package sort.
func SortSlices(m dsl.Matcher) {
	m.Match(`sort.Strings($s)`, `sort.Ints($s)`, `sort.Float64s($s)`).
		Report("use slices.Sort($s)").
		Suggest("slices.Sort($s)")

	m.Match(`sort.Slice($s, $less)`).
		Report("use slices.SortFunc($s, ...) with cmp.Compare")
}

// MinMaxBuiltin suggests the min and max builtins over float round trips.
func MinMaxBuiltin(m dsl.Matcher) {
	m.Match(`int(math.Min(float64($a), float64($b)))`).
		Report("use min($a, $b)").
		Suggest("min($a, $b)")

	m.Match(`int(math.Max(float64($a), float64($b)))`).
		Report("use max($a, $b)").
		Suggest("max($a, $b)")
}

// TimeLayouts suggests the named layouts used by the scan filters.
func TimeLayouts(m dsl.Matcher) {
	m.Match(`time.Parse("2006-01-02", $s)`).
		Report("use time.Parse(time.DateOnly, $s)").
		Suggest("time.Parse(time.DateOnly, $s)")

	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Report("use $t.Format(time.DateTime)").
		Suggest("$t.Format(time.DateTime)")
}

// StringsLines suggests strings.Lines when ranging over split lines.
func StringsLines(m dsl.Matcher) {
	m.Match(`for $_, $line := range strings.Split($s, "\n") { $*body }`).
		Report("use for $line := range strings.Lines($s)")
}
