package scope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rgayle/waterwatch/internal/models"
)

func inspector(parish string) Scope {
	return Scope{UserID: uuid.New(), Role: models.RoleInspector, Parish: parish}
}

func admin() Scope {
	return Scope{UserID: uuid.New(), Role: models.RoleAdmin, Parish: "Westmoreland"}
}

func TestCanAccessParish(t *testing.T) {
	sc := inspector("Westmoreland")
	assert.True(t, sc.CanAccessParish("Westmoreland"))
	assert.False(t, sc.CanAccessParish("Trelawny"))

	assert.True(t, admin().CanAccessParish("Trelawny"))
	assert.True(t, admin().CanAccessParish("Westmoreland"))
}

func TestCanJoinRoom(t *testing.T) {
	sc := inspector("Trelawny")
	assert.True(t, sc.CanJoinRoom("Trelawny"))
	assert.False(t, sc.CanJoinRoom("Westmoreland"))
	assert.False(t, sc.CanJoinRoom(RoomAdmin))

	assert.True(t, admin().CanJoinRoom(RoomAdmin))
	assert.True(t, admin().CanJoinRoom("Trelawny"))
}

func TestZeroScopeGrantsNothing(t *testing.T) {
	var sc Scope
	assert.False(t, sc.IsAdmin())
	assert.False(t, sc.CanAccessParish("Westmoreland"))
	assert.False(t, sc.CanJoinRoom(RoomAdmin))
}
