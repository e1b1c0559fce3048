package board

import (
	"context"
	"encoding/json"
	"fmt"
)

// Person is a board-system account that records can be assigned to.
type Person struct {
	ID    string
	Name  string
	Email string
}

// ListPeople fetches the board system's person directory.
func (c *Client) ListPeople(ctx context.Context) ([]Person, error) {
	const query = `query { users { id name email } }`

	data, err := c.execute(ctx, "list_people", false, query, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Users []struct {
			ID    json.Number `json:"id"`
			Name  string      `json:"name"`
			Email string      `json:"email"`
		} `json:"users"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode people: %w", err)
	}
	people := make([]Person, 0, len(payload.Users))
	for _, user := range payload.Users {
		people = append(people, Person{ID: user.ID.String(), Name: user.Name, Email: user.Email})
	}
	return people, nil
}
