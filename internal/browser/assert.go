package browser

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// AssertResponseIsSuccessful fails unless the status is in [200, 399).
func AssertResponseIsSuccessful(doc *Document) error {
	if doc == nil {
		return &AssertionError{Assertion: "response is successful", Expected: "a response", Actual: "none"}
	}
	if doc.StatusCode < 200 || doc.StatusCode >= 399 {
		return &AssertionError{
			Assertion: "response is successful",
			Expected:  "status in [200, 399)",
			Actual:    doc.StatusCode,
			Detail:    "url: " + doc.URL.String(),
		}
	}
	return nil
}

// AssertSelectorTextContains fails unless at least one element matching
// selector has substring in its text.
func AssertSelectorTextContains(doc *Document, selector, substring string) error {
	if doc == nil {
		return &AssertionError{Assertion: "selector text contains", Selector: selector, Expected: substring, Actual: "no response"}
	}
	texts := doc.Texts(selector)
	for _, text := range texts {
		if strings.Contains(text, substring) {
			return nil
		}
	}

	var actual any = "no matching element"
	if len(texts) > 0 {
		actual = texts
	}
	return &AssertionError{
		Assertion: "selector text contains",
		Selector:  selector,
		Expected:  substring,
		Actual:    actual,
		Detail:    "url: " + doc.URL.String(),
	}
}

// AssertGreaterThanOrEqual fails unless count >= n.
func AssertGreaterThanOrEqual(n, count int) error {
	if count < n {
		return &AssertionError{Assertion: "greater than or equal", Expected: ">= " + strconv.Itoa(n), Actual: count}
	}
	return nil
}

// AssertSelectorCount fails unless atLeast or more elements match selector.
func AssertSelectorCount(doc *Document, selector string, atLeast int) error {
	if doc == nil {
		return &AssertionError{Assertion: "selector count", Selector: selector, Expected: ">= " + strconv.Itoa(atLeast), Actual: "no response"}
	}
	if err := AssertGreaterThanOrEqual(atLeast, doc.Count(selector)); err != nil {
		ae := err.(*AssertionError)
		ae.Assertion = "selector count"
		ae.Selector = selector
		return ae
	}
	return nil
}

// exportAll lets cmp look into unexported fields, e.g. of errors.New values.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// AssertEquals is strict equality: values of different types never match.
func AssertEquals(expected, actual any) error {
	if cmp.Equal(expected, actual, exportAll) {
		return nil
	}
	return &AssertionError{
		Assertion: "equals",
		Expected:  expected,
		Actual:    actual,
		Detail:    cmp.Diff(expected, actual, exportAll),
	}
}
