package model

import "time"

// Feedback is a comment on a tour.  Comments may be anonymous and may reply
// to another comment of the same tour, forming a forest.  A parent with
// replies cannot be deleted.
type Feedback struct {
	ID        uint64    // feedbacks.id
	TourID    uint64    // feedbacks.tour_id
	Email     *string   // feedbacks.email (nullable)
	UserName  *string   // feedbacks.user_name (nullable)
	Comment   string    // feedbacks.comment
	ParentID  *uint64   // feedbacks.parent_id (nullable)
	CreatedAt time.Time // feedbacks.created_at
}

// FeedbackNode is a feedback together with its replies.
type FeedbackNode struct {
	Feedback
	Children []*FeedbackNode
}

// BuildFeedbackForest arranges rows into trees.  Rows are indexed by id and
// linked to their parent; rows without a parent, or whose parent is not in
// the set, become roots.  Roots and children keep the order of rows.
func BuildFeedbackForest(rows []Feedback) []*FeedbackNode {
	nodes := make(map[uint64]*FeedbackNode, len(rows))
	for _, f := range rows {
		nodes[f.ID] = &FeedbackNode{Feedback: f, Children: []*FeedbackNode{}}
	}
	roots := make([]*FeedbackNode, 0)
	for _, f := range rows {
		n := nodes[f.ID]
		if f.ParentID != nil {
			if p, ok := nodes[*f.ParentID]; ok && p != n {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}
