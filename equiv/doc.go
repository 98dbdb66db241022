// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package equiv implements an equivalence relation on the integers [0, n)
// as a disjoint-set forest.  Orbits (equivalence classes) are materialized
// on demand, in ascending order of their members.
package equiv
