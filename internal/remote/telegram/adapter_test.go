package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/mfadaei/tgsum/internal/remote"
)

func docMedia(attrs ...tg.DocumentAttributeClass) *tg.MessageMediaDocument {
	media := &tg.MessageMediaDocument{}
	media.SetDocument(&tg.Document{Attributes: attrs})
	return media
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		media tg.MessageMediaClass
		want  remote.Kind
	}{
		{"text", nil, remote.KindText},
		{"photo", &tg.MessageMediaPhoto{}, remote.KindPhoto},
		{"plain document", docMedia(), remote.KindDocument},
		{"video", docMedia(&tg.DocumentAttributeVideo{}), remote.KindVideo},
		{"voice", docMedia(&tg.DocumentAttributeAudio{Voice: true}), remote.KindVoice},
		{"audio", docMedia(&tg.DocumentAttributeAudio{}), remote.KindAudio},
		{"sticker", docMedia(&tg.DocumentAttributeSticker{}), remote.KindSticker},
		{"gif", docMedia(&tg.DocumentAttributeAnimated{}), remote.KindGIF},
		{"geo", &tg.MessageMediaGeo{}, remote.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &tg.Message{Media: tc.media}
			if got := classify(m); got != tc.want {
				t.Errorf("classify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSenderName(t *testing.T) {
	a := &Adapter{}
	self := &tg.User{ID: 1, Username: "myself"}
	users := map[int64]*tg.User{
		10: {ID: 10, Username: "alice"},
		11: {ID: 11, FirstName: "Bob"},
		12: {ID: 12},
	}

	out := &tg.Message{Out: true}
	if got := a.senderName(out, users, self, 10); got != "myself(me)" {
		t.Errorf("own message = %q, want myself(me)", got)
	}

	from := func(id int64) *tg.Message {
		return &tg.Message{FromID: &tg.PeerUser{UserID: id}}
	}
	if got := a.senderName(from(10), users, self, 10); got != "@alice" {
		t.Errorf("username sender = %q, want @alice", got)
	}
	if got := a.senderName(from(11), users, self, 11); got != "Bob" {
		t.Errorf("first-name sender = %q, want Bob", got)
	}
	if got := a.senderName(from(12), users, self, 12); got != "Unknown" {
		t.Errorf("nameless sender = %q, want Unknown", got)
	}
	if got := a.senderName(from(99), users, self, 99); got != "Unknown" {
		t.Errorf("unresolved sender = %q, want Unknown", got)
	}

	// No FromID: resolve via the dialog counterparty.
	if got := a.senderName(&tg.Message{}, users, self, 10); got != "@alice" {
		t.Errorf("counterparty fallback = %q, want @alice", got)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		u    tg.User
		want string
	}{
		{tg.User{FirstName: "Alice", LastName: "W"}, "Alice W"},
		{tg.User{FirstName: "Alice"}, "Alice"},
		{tg.User{Username: "alice"}, "@alice"},
		{tg.User{}, "Unknown"},
	}
	for _, tc := range cases {
		if got := displayName(&tc.u); got != tc.want {
			t.Errorf("displayName(%+v) = %q, want %q", tc.u, got, tc.want)
		}
	}
}
