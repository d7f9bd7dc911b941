package payload

import (
	"fmt"
	"regexp"
)

var (
	topPartID = regexp.MustCompile(`^[0-9]+$`)
	subPartID = regexp.MustCompile(`^([0-9]+)\.([0-9]+)$`)
)

// PartIDReport lists the part ids found in a tree and any that do not match
// their position.
type PartIDReport struct {
	PartIDs    []string
	Violations []string
}

// OK reports whether every part id matched its position.
func (r PartIDReport) OK() bool {
	return len(r.Violations) == 0
}

// CheckPartIDs verifies that ids encode their path: "" at the root, "N" one level
// down and "N.M" below that, where N is the parent's id.
func CheckPartIDs(root *Part) PartIDReport {
	var r PartIDReport
	if root == nil {
		return r
	}
	if root.PartID != "" {
		r.Violations = append(r.Violations, fmt.Sprintf("root part id %q is not empty", root.PartID))
	}
	for _, part := range root.Parts {
		r.PartIDs = append(r.PartIDs, part.PartID)
		if !topPartID.MatchString(part.PartID) {
			r.Violations = append(r.Violations, fmt.Sprintf("part id %q is not an integer", part.PartID))
		}
		for _, sub := range part.Parts {
			r.PartIDs = append(r.PartIDs, "  "+sub.PartID)
			m := subPartID.FindStringSubmatch(sub.PartID)
			switch {
			case m == nil:
				r.Violations = append(r.Violations, fmt.Sprintf("sub part id %q is not N.M", sub.PartID))
			case m[1] != part.PartID:
				r.Violations = append(r.Violations,
					fmt.Sprintf("sub part id %q does not belong to parent %q", sub.PartID, part.PartID))
			}
		}
	}
	return r
}
