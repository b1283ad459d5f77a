package memory

import "github.com/hashicorp/go-memdb"

var (
	tblUsers    = "users"
	tblProjects = "projects"
	tblTickets  = "tickets"
	tblOTPs     = "otps"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblUsers: {
			Name: tblUsers,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"email": {
					Name:    "email",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
				},
			},
		},
		tblProjects: {
			Name: tblProjects,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"owner": {
					Name:    "owner",
					Indexer: &memdb.StringFieldIndex{Field: "Owner"},
				},
				"member": {
					Name:         "member",
					AllowMissing: true,
					Indexer:      &memdb.StringSliceFieldIndex{Field: "Members"},
				},
			},
		},
		tblTickets: {
			Name: tblTickets,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"creator": {
					Name:    "creator",
					Indexer: &memdb.StringFieldIndex{Field: "CreatedBy"},
				},
				"assignee": {
					Name:         "assignee",
					AllowMissing: true,
					Indexer:      &memdb.StringSliceFieldIndex{Field: "Assignees"},
				},
			},
		},
		tblOTPs: {
			Name: tblOTPs,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
				},
			},
		},
	},
}
