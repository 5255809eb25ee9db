package pipeline

import "pressroom/internal/core"

// transitions is the closed edge set of the pipeline. Forward stages are
// non-skippable; needs_review is reachable from every in-flight state and
// publishing may revert to article_approved when the publish stage fails.
var transitions = map[core.Status][]core.Status{
	core.StatusCreated:            {core.StatusPromptReady, core.StatusNeedsReview},
	core.StatusPromptReady:        {core.StatusPromptApproved, core.StatusNeedsReview},
	core.StatusPromptApproved:     {core.StatusArticleReady, core.StatusNeedsReview},
	core.StatusArticleReady:       {core.StatusArticleApproved, core.StatusNeedsReview},
	core.StatusArticleApproved:    {core.StatusPublishing, core.StatusNeedsReview},
	core.StatusPublishing:         {core.StatusPublished, core.StatusArticleApproved, core.StatusNeedsReview},
	core.StatusPublished:          {core.StatusCrosspostReady, core.StatusNeedsReview},
	core.StatusCrosspostReady:     {core.StatusCrosspostPublished, core.StatusNeedsReview},
	core.StatusCrosspostPublished: {core.StatusCompleted, core.StatusNeedsReview},
	core.StatusCompleted:          {},
	// Human reset: a reviewed topic returns to the stable state it failed from.
	core.StatusNeedsReview: {
		core.StatusCreated,
		core.StatusPromptReady,
		core.StatusPromptApproved,
		core.StatusArticleReady,
		core.StatusArticleApproved,
		core.StatusPublished,
		core.StatusCrosspostReady,
	},
}

// CanTransition reports whether the edge from -> to is in the table.
func CanTransition(from, to core.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
