// Package advisor analyzes problem reports against trained cluster and topic
// models and suggests solutions and lessons from similar historical problems.
//
// Quick start:
//
//	a, err := advisor.New(
//	    advisor.WithModelDir("models/"),
//	    advisor.WithHistory("csv", "data/final_results.csv"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
//	res, _ := a.Analyze(advisor.Problem{Title: "Printer does not print"})
//	fmt.Println(res.ClusterSummary)
//
// An Advisor is safe for concurrent use, including concurrent calls to
// Reload. A model that fails to load leaves its half of the analysis
// degraded instead of failing New; use WithRequireModels to make it fatal.
package advisor
