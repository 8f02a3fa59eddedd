package ast

import "hash/fnv"

// ComputeFingerprint derives Node.Fingerprint from the subtree shape
// (Kind, Text, and children's fingerprints), ignoring Span so that the
// same expression text parsed twice yields identical fingerprints even
// if spans differ (e.g. when embedded at a different offset by Analyze
// mode's incremental reparsing). Call after a node's Children are fully
// populated, bottom-up; the parser does this as it reduces each rule.
func ComputeFingerprint(n *Node) uint64 {
	if n == nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte{byte(n.Kind)})
	_, _ = h.Write([]byte(n.Text))
	for _, c := range n.Children {
		fp := c.Fingerprint
		if fp == 0 {
			fp = ComputeFingerprint(c)
		}
		_, _ = h.Write([]byte{
			byte(fp), byte(fp >> 8), byte(fp >> 16), byte(fp >> 24),
			byte(fp >> 32), byte(fp >> 40), byte(fp >> 48), byte(fp >> 56),
		})
	}
	n.Fingerprint = h.Sum64()
	return n.Fingerprint
}
