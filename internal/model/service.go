package model

import "time"

type ServiceType struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreateServiceTypeRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// ServiceTypeNames joins names with ", " in the given order.
func ServiceTypeNames(types []ServiceType) string {
	out := ""
	for i, st := range types {
		if i > 0 {
			out += ", "
		}
		out += st.Name
	}
	return out
}
