// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package stats provides the small combinatorial and binomial tail
// computations used to decide whether two receptor sequences are clonally
// related, and whether VDJ and GEX cell calls agree.
//
// All sums are accumulated with multiplicatively updated coefficients rather
// than factorials, so they stay finite for the sequence lengths seen in
// practice.  Malformed arguments are programming errors and panic.
package stats
