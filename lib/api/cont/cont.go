package cont

import (
	"context"

	"finsurvey/entity"
)

type ctxKey string

const AdminKey ctxKey = "admin"

func PutAdmin(c context.Context, admin *entity.Admin) context.Context {
	return context.WithValue(c, AdminKey, *admin)
}

func GetAdmin(c context.Context) *entity.Admin {
	admin, ok := c.Value(AdminKey).(entity.Admin)
	if !ok {
		return nil
	}
	return &admin
}
