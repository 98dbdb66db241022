// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package clonotype groups exact subclonotypes of immune receptor sequences
// into clonotypes and refines the grouping.
//
// The input is a Dataset: exact subclonotypes (cells sharing identical chain
// content) and the join units (CloneInfo) derived from them.  Processing runs
// in the following order:
//
//  1. JoinAll scores candidate pairs of join units in parallel.
//  2. BuildPartition unions accepted pairs into an equiv.Partition and
//     stitches join units of the same subclonotype together.
//  3. Disintegrate splits unsupported single-chain subclonotypes per cell.
//  4. MergeOnesies reattaches single-chain units to unambiguous orbits.
//  5. SplitOrbits, WeakChains and SplitOrbits again prune artifactual
//     branches of each orbit.
//  6. FilterByPredicates drops cells that fail user expressions.
//
// Pipeline.Run drives all of the above.  ValidateConsistency is an
// independent check of VDJ cell calls against gene expression cell calls.
//
// Every cell removed by a stage is recorded in the Dataset's Fate together
// with a reason.
package clonotype
