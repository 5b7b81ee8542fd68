// Package io reads and writes the files causalhub works with.
//
// # Datasets
//
// Datasets are CSV files with a header row of variable labels and one
// observation per row:
//
//	smoker,cancer,xray
//	yes,no,negative
//	no,no,negative
//
// [ReadCategoricalCSV] treats every cell as a state name; [ReadContinuousCSV]
// parses cells as float64 and rejects NaN and infinities. Columns are sorted
// by label when the dataset is built, whatever their order in the file.
//
// # Graphs
//
// Learned graphs are exchanged as JSON with the variable labels and the
// directed edges between them:
//
//	{
//	  "labels": ["cancer", "smoker", "xray"],
//	  "edges": [
//	    {"from": "smoker", "to": "cancer"},
//	    {"from": "cancer", "to": "xray"}
//	  ]
//	}
//
// [WriteGraphJSON] emits labels and edges in sorted order, so equal graphs
// serialize to equal bytes and can be hashed for cache keys.
// [ReadGraphJSON] rejects cycles and unknown labels.
//
// # Prior knowledge
//
// Forbidden and required edges are read from TOML or YAML, chosen by file
// extension:
//
//	forbidden = [["xray", "smoker"]]
//	required  = [["smoker", "cancer"]]
//
// The same document in YAML:
//
//	forbidden:
//	  - [xray, smoker]
//	required:
//	  - [smoker, cancer]
package io
