package diff

import "github.com/chatsync/b2csync/pkg/models"

// Departments compares an existing Department against freshly normalized values.
func Departments(existing *models.Department, next *models.Department) *Result {
	r := newResult()
	c := &fieldComparer{result: r}

	c.compareString("name", &existing.Name, &next.Name)
	compareValue(c, "isActive", existing.IsActive, next.IsActive)
	compareValue(c, "isLeaf", existing.IsLeaf, next.IsLeaf)

	return r
}
