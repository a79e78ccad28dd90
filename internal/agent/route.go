package agent

import "strings"

// Route is the processing path chosen for a query.
type Route string

const (
	// RouteCalculator sends the query to the arithmetic evaluator.
	RouteCalculator Route = "Calculator"
	// RouteDictionary sends the query to the definition lookup.
	RouteDictionary Route = "Dictionary"
	// RouteRAG answers from the document corpus via retrieval and generation.
	RouteRAG Route = "RAG"
)

// rule maps a keyword to a route. Rules are evaluated in order and the first
// keyword found anywhere in the lower-cased query wins.
type rule struct {
	keyword string
	route   Route
}

// rules is the classification table, checked in order. Matching is by
// substring: "undefined" routes to the Dictionary and "recalculated" to the
// Calculator.
var rules = []rule{
	{keyword: "calculate", route: RouteCalculator},
	{keyword: "define", route: RouteDictionary},
}

// Classify returns the route for query. It is a pure function of the text.
func Classify(query string) Route {
	q := strings.ToLower(query)
	for _, r := range rules {
		if strings.Contains(q, r.keyword) {
			return r.route
		}
	}
	return RouteRAG
}

// stripKeyword removes every occurrence of the route's keyword from the
// lower-cased query and trims the result.
func stripKeyword(query, keyword string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(query), keyword, ""))
}
