package authz_test

import (
	"bugpilot/internal/authz"
	"bugpilot/internal/metrics"
	"bugpilot/internal/models"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectWith(members map[uuid.UUID]models.ProjectRole) *models.Project {
	owner := uuid.New()
	p := models.NewProject("Demo", "", owner)
	for id, role := range members {
		p.Members = append(p.Members, models.ProjectMember{UserID: id, Role: role})
	}
	return p
}

func TestIsAtLeast(t *testing.T) {
	roles := []models.ProjectRole{models.ProjectRoleViewer, models.ProjectRoleDeveloper, models.ProjectRoleAdmin}
	for i, role := range roles {
		for j, required := range roles {
			assert.Equal(t, i >= j, authz.IsAtLeast(role, required), "%s >= %s", role, required)
		}
	}
	assert.False(t, authz.IsAtLeast("owner", models.ProjectRoleViewer))
	assert.Equal(t, -1, authz.Rank("owner"))
}

func TestDecide(t *testing.T) {
	viewer, developer, admin, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	project := projectWith(map[uuid.UUID]models.ProjectRole{
		viewer:    models.ProjectRoleViewer,
		developer: models.ProjectRoleDeveloper,
		admin:     models.ProjectRoleAdmin,
	})

	cases := []struct {
		name     string
		actor    uuid.UUID
		resource authz.Resource
		action   authz.Action
		want     bool
	}{
		{"viewer sees project", viewer, authz.ResourceProject, authz.ActionView, true},
		{"viewer cannot add members", viewer, authz.ResourceProject, authz.ActionAddMembers, false},
		{"developer cannot add members", developer, authz.ResourceProject, authz.ActionAddMembers, false},
		{"admin adds members", admin, authz.ResourceProject, authz.ActionAddMembers, true},
		{"developer sees ticket", developer, authz.ResourceTicket, authz.ActionView, true},
		{"developer cannot edit ticket", developer, authz.ResourceTicket, authz.ActionEdit, false},
		{"admin deletes ticket", admin, authz.ResourceTicket, authz.ActionDelete, true},
		{"stranger sees nothing", stranger, authz.ResourceProject, authz.ActionView, false},
		{"unknown pair", admin, authz.ResourceProject, authz.ActionDelete, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, authz.Decide(tc.actor, project, tc.resource, tc.action))
		})
	}

	t.Run("nil project", func(t *testing.T) {
		assert.False(t, authz.Decide(admin, nil, authz.ResourceProject, authz.ActionView))
	})
}

// Steigt die Rolle, darf keine vorher erlaubte Aktion verboten werden.
func TestDecideIsMonotonic(t *testing.T) {
	actor := uuid.New()
	roles := []models.ProjectRole{models.ProjectRoleViewer, models.ProjectRoleDeveloper, models.ProjectRoleAdmin}
	pairs := []struct {
		resource authz.Resource
		action   authz.Action
	}{
		{authz.ResourceProject, authz.ActionView},
		{authz.ResourceProject, authz.ActionAddMembers},
		{authz.ResourceTicket, authz.ActionView},
		{authz.ResourceTicket, authz.ActionEdit},
		{authz.ResourceTicket, authz.ActionDelete},
	}
	for _, pair := range pairs {
		allowedBefore := false
		for _, role := range roles {
			allowed := authz.Decide(actor, projectWith(map[uuid.UUID]models.ProjectRole{actor: role}), pair.resource, pair.action)
			if allowedBefore {
				assert.True(t, allowed, "%s:%s mit %s", pair.resource, pair.action, role)
			}
			allowedBefore = allowed
		}
		assert.True(t, allowedBefore, "admin muss %s:%s dürfen", pair.resource, pair.action)
	}
}

func TestCheck(t *testing.T) {
	developer := uuid.New()
	project := projectWith(map[uuid.UUID]models.ProjectRole{developer: models.ProjectRoleDeveloper})

	err := authz.Check(developer, project, authz.ResourceProject, authz.ActionAddMembers)
	require.ErrorIs(t, err, authz.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "developer")
	assert.Contains(t, err.Error(), "admin")

	err = authz.Check(uuid.New(), project, authz.ResourceProject, authz.ActionView)
	require.ErrorIs(t, err, authz.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "kein Mitglied")

	assert.NoError(t, authz.Check(project.OwnerUserID, project, authz.ResourceProject, authz.ActionAddMembers))
}

func TestDecisionsAreCounted(t *testing.T) {
	denied := metrics.AuthzDecisions.WithLabelValues("project", "add-members", "deny")
	before := testutil.ToFloat64(denied)

	authz.Decide(uuid.New(), projectWith(nil), authz.ResourceProject, authz.ActionAddMembers)

	assert.Equal(t, before+1, testutil.ToFloat64(denied))
}

func TestCheckTicketUpdate(t *testing.T) {
	creator, assignee, viewer, admin := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	project := projectWith(map[uuid.UUID]models.ProjectRole{
		creator:  models.ProjectRoleDeveloper,
		assignee: models.ProjectRoleDeveloper,
		viewer:   models.ProjectRoleViewer,
		admin:    models.ProjectRoleAdmin,
	})
	ticket := models.NewTicket(project.ID, creator, "Absturz", "", models.PriorityHigh)
	ticket.Assignees = []uuid.UUID{assignee}

	statusOnly := authz.TicketChange{Status: true}
	titleChange := authz.TicketChange{Title: true}

	assert.NoError(t, authz.CheckTicketUpdate(creator, project, ticket, titleChange))
	assert.NoError(t, authz.CheckTicketUpdate(admin, project, ticket, titleChange))
	assert.NoError(t, authz.CheckTicketUpdate(assignee, project, ticket, statusOnly))
	assert.ErrorIs(t, authz.CheckTicketUpdate(assignee, project, ticket, titleChange), authz.ErrPermissionDenied)
	assert.ErrorIs(t, authz.CheckTicketUpdate(assignee, project, ticket, authz.TicketChange{Status: true, Assignees: true}), authz.ErrPermissionDenied)
	assert.ErrorIs(t, authz.CheckTicketUpdate(viewer, project, ticket, statusOnly), authz.ErrPermissionDenied)

	// Ohne Projekt gelten nur Ersteller- und Zuweisungsregeln.
	assert.NoError(t, authz.CheckTicketUpdate(creator, nil, ticket, titleChange))
	assert.NoError(t, authz.CheckTicketUpdate(assignee, nil, ticket, statusOnly))
	assert.ErrorIs(t, authz.CheckTicketUpdate(admin, nil, ticket, titleChange), authz.ErrPermissionDenied)
}

func TestTicketVisibility(t *testing.T) {
	creator, assignee, viewer := uuid.New(), uuid.New(), uuid.New()
	project := projectWith(map[uuid.UUID]models.ProjectRole{viewer: models.ProjectRoleViewer})
	ticket := models.NewTicket(project.ID, creator, "Absturz", "", models.PriorityLow)
	ticket.Assignees = []uuid.UUID{assignee}

	assert.True(t, authz.CanViewTicket(creator, nil, ticket))
	assert.True(t, authz.CanViewTicket(assignee, project, ticket))
	assert.True(t, authz.CanViewTicket(viewer, project, ticket))
	assert.False(t, authz.CanViewTicket(uuid.New(), project, ticket))

	assert.True(t, authz.CanDeleteTicket(creator, project, ticket))
	assert.True(t, authz.CanDeleteTicket(project.OwnerUserID, project, ticket))
	assert.False(t, authz.CanDeleteTicket(assignee, project, ticket))
	assert.False(t, authz.CanDeleteTicket(viewer, project, ticket))
}
