package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullUser(id, name string) *User {
	m := "2024" + id
	return &User{
		ID: id, Name: name, Email: name + "@alu.ufc.br", PasswordHash: "hash",
		Matricula: &m, Curso: "Engenharia Civil", Role: RoleStaff, Reputation: 3,
	}
}

func TestNestedUsersSerializeAsRefs(t *testing.T) {
	a, b := fullUser("a", "ana"), fullUser("b", "bia")
	claimed := b.ID
	it := Item{ID: "i1", Title: "Chave", UserID: a.ID, User: a, ClaimedByID: &claimed, ClaimedBy: b}
	conv := Conversation{ID: "c1", ParticipantAID: a.ID, ParticipantBID: b.ID, ItemID: it.ID, Item: &it}
	conv.ParticipantA, conv.ParticipantB = a, b
	conv.FillParticipants()
	msg := Message{ID: "m1", ConversationID: conv.ID, SenderID: a.ID, Sender: a, Text: "oi"}

	for name, v := range map[string]any{"item": it, "itemPtr": &it, "conversation": conv, "message": msg} {
		raw, err := json.Marshal(v)
		require.NoError(t, err, name)
		for _, leak := range []string{"email", "@alu.ufc.br", "matricula", "hash", `"role"`} {
			assert.NotContains(t, string(raw), leak, name)
		}
		assert.Contains(t, string(raw), `"name":"ana"`, name)
	}

	raw, err := json.Marshal(conv)
	require.NoError(t, err)
	var out struct {
		Participants []UserRef `json:"participants"`
		Item         struct {
			ClaimedBy *UserRef `json:"claimedBy"`
		} `json:"item"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Participants, 2)
	assert.Equal(t, 3, out.Participants[0].Reputation)
	require.NotNil(t, out.Item.ClaimedBy)
	assert.Equal(t, "bia", out.Item.ClaimedBy.Name)
}

func TestItemWithoutUsersOmitsRefs(t *testing.T) {
	raw, err := json.Marshal(Item{ID: "i1", Title: "Chave"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"user"`)
	assert.NotContains(t, string(raw), `"claimedBy"`)
}
