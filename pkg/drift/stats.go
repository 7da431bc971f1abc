// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package drift

import (
	"math"
	"sort"

	"github.com/teradata-labs/promptshield/pkg/types"
)

const (
	// entropyEpsilon guards the entropy delta divisor.
	entropyEpsilon = 1e-3
	// psiEpsilon replaces zero buckets in the PSI computation.
	psiEpsilon = 1e-4
	// chiEpsilon pads tool histograms so absent tools contribute.
	chiEpsilon = 1e-4
)

// ksStatistic computes the two-sample Kolmogorov-Smirnov statistic
// D, the maximum distance between the empirical CDFs of a and b.
func ksStatistic(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	as := append([]float64(nil), a...)
	bs := append([]float64(nil), b...)
	sort.Float64s(as)
	sort.Float64s(bs)

	var d float64
	i, j := 0, 0
	for i < len(as) && j < len(bs) {
		v := math.Min(as[i], bs[j])
		for i < len(as) && as[i] == v {
			i++
		}
		for j < len(bs) && bs[j] == v {
			j++
		}
		diff := math.Abs(float64(i)/float64(len(as)) - float64(j)/float64(len(bs)))
		if diff > d {
			d = diff
		}
	}
	return d
}

// ksPValue approximates the two-sided p-value for a KS statistic d
// over sample sizes n1 and n2 using the asymptotic Kolmogorov
// distribution.
func ksPValue(d float64, n1, n2 int) float64 {
	if n1 == 0 || n2 == 0 {
		return 1
	}

	en := math.Sqrt(float64(n1) * float64(n2) / float64(n1+n2))
	lambda := (en + 0.12 + 0.11/en) * d
	if lambda <= 0 {
		return 1
	}

	var p float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * 2 * math.Exp(-2*lambda*lambda*float64(j)*float64(j))
		p += term
		sign = -sign
		if math.Abs(term) < 1e-10 {
			break
		}
	}

	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// shannonEntropy computes the Shannon entropy (natural log) of one
// text over its character histogram.
func shannonEntropy(text string) float64 {
	if len(text) == 0 {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range text {
		counts[r]++
		total++
	}

	var entropy float64
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log(p)
	}
	return entropy
}

// meanEntropy returns the mean per-response Shannon entropy.
func meanEntropy(texts []string) float64 {
	if len(texts) == 0 {
		return 0
	}
	var sum float64
	for _, t := range texts {
		sum += shannonEntropy(t)
	}
	return sum / float64(len(texts))
}

// psi computes the Population Stability Index between the baseline and
// current severity distributions over the five severity buckets. Zero
// fractions are replaced by a small epsilon so empty buckets still
// contribute.
func psi(current, baseline map[types.Severity]int) float64 {
	currentTotal, baselineTotal := 0, 0
	for _, sev := range types.Severities() {
		currentTotal += current[sev]
		baselineTotal += baseline[sev]
	}
	if currentTotal == 0 {
		currentTotal = 1
	}
	if baselineTotal == 0 {
		baselineTotal = 1
	}

	var value float64
	for _, sev := range types.Severities() {
		q := float64(current[sev]) / float64(currentTotal)
		p := float64(baseline[sev]) / float64(baselineTotal)
		if q == 0 {
			q = psiEpsilon
		}
		if p == 0 {
			p = psiEpsilon
		}
		value += (q - p) * math.Log(q/p)
	}
	return math.Abs(value)
}

// chiSquaredNormalized compares two tool-name histograms with a
// chi-squared statistic normalized into [0,1] as chi2/(chi2+N), where
// N is the total number of calls on both sides. Expected counts come
// from the baseline distribution scaled to the current total.
func chiSquaredNormalized(current, baseline map[string]int) float64 {
	union := make(map[string]struct{})
	currentTotal, baselineTotal := 0.0, 0.0
	for tool, n := range current {
		union[tool] = struct{}{}
		currentTotal += float64(n)
	}
	for tool, n := range baseline {
		union[tool] = struct{}{}
		baselineTotal += float64(n)
	}
	if currentTotal == 0 || baselineTotal == 0 {
		return 0
	}

	var chi2 float64
	for tool := range union {
		observed := float64(current[tool]) + chiEpsilon
		expected := (float64(baseline[tool])+chiEpsilon)/baselineTotal*currentTotal + chiEpsilon
		diff := observed - expected
		chi2 += diff * diff / expected
	}

	n := currentTotal + baselineTotal
	return math.Min(1, chi2/(chi2+n))
}

// bigram is one consecutive (tool, tool) pair in a trace.
type bigram struct {
	first, second string
}

// bigramCounts collects the multiset of consecutive tool bigrams over
// a set of tool-name sequences.
func bigramCounts(sequences [][]string) map[bigram]int {
	counts := make(map[bigram]int)
	for _, seq := range sequences {
		for i := 0; i+1 < len(seq); i++ {
			counts[bigram{seq[i], seq[i+1]}]++
		}
	}
	return counts
}

// bigramJaccardDistance is 1 minus the multiset Jaccard similarity of
// the consecutive tool bigrams on each side. Two empty sides have no
// distance; one empty side against a populated one is maximal.
func bigramJaccardDistance(current, baseline [][]string) float64 {
	c := bigramCounts(current)
	b := bigramCounts(baseline)

	union := make(map[bigram]struct{})
	for k := range c {
		union[k] = struct{}{}
	}
	for k := range b {
		union[k] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}

	var inter, uni int
	for k := range union {
		cn, bn := c[k], b[k]
		if cn < bn {
			inter += cn
			uni += bn
		} else {
			inter += bn
			uni += cn
		}
	}
	return 1 - float64(inter)/float64(uni)
}
