package diff

import "github.com/chatsync/b2csync/pkg/models"

// Agents compares an existing Agent against freshly normalized values.
func Agents(existing *models.Agent, next *models.Agent) *Result {
	r := newResult()
	c := &fieldComparer{result: r}

	c.compareString("name", &existing.Name, &next.Name)
	c.compareString("username", existing.Username, next.Username)
	c.compareString("email", existing.Email, next.Email)
	compareValue(c, "isActive", existing.IsActive, next.IsActive)

	return r
}
