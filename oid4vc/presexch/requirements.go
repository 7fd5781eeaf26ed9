package presexch

import "fmt"

// requirementResult is the outcome of one submission requirement.
type requirementResult struct {
	met bool
	// missing is the first unmatched descriptor that would have helped.
	missing string
	reason  string
}

func (pd *PresentationDefinition) evalRequirement(r *SubmissionRequirement, matched map[string]bool) requirementResult {
	var (
		n       int
		total   int
		missing string
	)

	switch {
	case r.From != "":
		for _, d := range pd.InputDescriptors {
			if !d.inGroup(r.From) {
				continue
			}

			total++

			if matched[d.ID] {
				n++
			} else if missing == "" {
				missing = d.ID
			}
		}

		if total == 0 {
			return requirementResult{reason: fmt.Sprintf("group %q has no input descriptors", r.From)}
		}
	case len(r.FromNested) > 0:
		for _, nested := range r.FromNested {
			total++

			res := pd.evalRequirement(nested, matched)
			if res.met {
				n++
			} else if missing == "" {
				missing = res.missing
			}
		}
	default:
		return requirementResult{reason: "requirement has neither from nor from_nested"}
	}

	switch r.Rule {
	case All:
		if n == total {
			return requirementResult{met: true}
		}

		return requirementResult{missing: missing, reason: fmt.Sprintf("%d of %d matched", n, total)}
	case Pick:
		return pick(r, n, missing)
	default:
		return requirementResult{reason: fmt.Sprintf("unknown rule %q", r.Rule)}
	}
}

func pick(r *SubmissionRequirement, n int, missing string) requirementResult {
	if r.Count != nil {
		if n == *r.Count {
			return requirementResult{met: true}
		}

		res := requirementResult{reason: fmt.Sprintf("%d matched, exactly %d required", n, *r.Count)}
		if n < *r.Count {
			res.missing = missing
		}

		return res
	}

	if n < r.Min {
		return requirementResult{missing: missing, reason: fmt.Sprintf("%d matched, at least %d required", n, r.Min)}
	}

	if r.Max > 0 && n > r.Max {
		return requirementResult{reason: fmt.Sprintf("%d matched, at most %d allowed", n, r.Max)}
	}

	return requirementResult{met: true}
}

// requiredGroups collects the groups referenced by the requirements.
func requiredGroups(requirements []*SubmissionRequirement, groups map[string]bool) {
	for _, r := range requirements {
		if r.From != "" {
			groups[r.From] = true
		}

		requiredGroups(r.FromNested, groups)
	}
}

func requirementName(r *SubmissionRequirement, i int) string {
	switch {
	case r.Name != "":
		return r.Name
	case r.From != "":
		return r.From
	default:
		return fmt.Sprintf("submission_requirements[%d]", i)
	}
}

// checkRequirements verifies the matched descriptors against the definition:
// every descriptor when there are no submission requirements, otherwise each
// requirement in declared order.
func (pd *PresentationDefinition) checkRequirements(matched map[string]bool) error {
	if len(pd.SubmissionRequirements) == 0 {
		for _, d := range pd.InputDescriptors {
			if !matched[d.ID] {
				return &UnsatisfiedDefinitionError{
					DefinitionID: pd.ID,
					DescriptorID: d.ID,
					Reason:       "no credential satisfies the constraints",
				}
			}
		}

		return nil
	}

	for i, r := range pd.SubmissionRequirements {
		res := pd.evalRequirement(r, matched)
		if res.met {
			continue
		}

		return &UnsatisfiedDefinitionError{
			DefinitionID: pd.ID,
			DescriptorID: res.missing,
			Requirement:  requirementName(r, i),
			Reason:       res.reason,
		}
	}

	return nil
}

// submitted reports whether a matched descriptor belongs in the submission.
func (pd *PresentationDefinition) submitted(d *InputDescriptor, groups map[string]bool) bool {
	if len(pd.SubmissionRequirements) == 0 {
		return true
	}

	for _, g := range d.Group {
		if groups[g] {
			return true
		}
	}

	return false
}
