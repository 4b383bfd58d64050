// Package forest loads a pre-trained random forest and evaluates it against
// feature vectors.
//
// The model artifact is produced offline and exported as JSON:
//
//	{ "feature_names": [...], "n_estimators": N, "trees": [Node, ...] }
//	leaf:     { "leaf": true,  "prediction": 0|1 }
//	internal: { "leaf": false, "feature_index": i, "threshold": t,
//	            "left": Node, "right": Node }
//
// Nodes are represented as a closed sum type (Leaf, Internal). Internal nodes
// hold their children by value through the Node interface, so every tree
// exclusively owns its subtree and a cyclic tree cannot be constructed.
// Decoding additionally bounds tree depth so hostile input is rejected before
// it reaches inference.
//
// A Loader caches the model for the lifetime of the process. Concurrent first
// callers share a single in-flight load; a failed load leaves the cache empty
// so that a later call may retry.
package forest
