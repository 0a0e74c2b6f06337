package contact

import "time"

// Contact is a gated record: name, title and company are always visible,
// email and phone only after an unlock.
type Contact struct {
	ID        int64     `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Title     string    `db:"title" json:"title"`
	Company   string    `db:"company" json:"company"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Unlocked is computed per caller in list queries.
	Unlocked bool `db:"unlocked" json:"unlocked"`
}

// Mask blanks the paid fields of a locked contact.
func (c *Contact) Mask() {
	if !c.Unlocked {
		c.Email = ""
		c.Phone = ""
	}
}

type Company struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Domain    string    `db:"domain" json:"domain,omitempty"`
	Industry  string    `db:"industry" json:"industry"`
	Size      string    `db:"size" json:"size"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Unlocked bool `db:"unlocked" json:"unlocked"`
}

func (co *Company) Mask() {
	if !co.Unlocked {
		co.Domain = ""
	}
}

// SearchParams narrows contact listings; all fields are optional.
type SearchParams struct {
	Query    string
	Company  string
	Title    string
	Location string
	Limit    int
	Offset   int
}
