package session

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDirSanitizesPhone(t *testing.T) {
	withPlus := Dir("+989123456789")
	without := Dir("989123456789")
	if withPlus != without {
		t.Errorf("Dir(+98...) = %q, Dir(98...) = %q; want identical", withPlus, without)
	}
	if strings.ContainsAny(filepath.Base(withPlus), "+ ") {
		t.Errorf("account dir %q contains unsanitized characters", withPlus)
	}
}

func TestPathsShareAccountDir(t *testing.T) {
	const account = "+989123456789"
	dir := Dir(account)
	for name, path := range map[string]string{
		"cache db":         CacheDBPath(account),
		"telegram session": TelegramSessionPath(account),
		"lock":             LockPath(account),
		"log":              LogPath(account),
	} {
		if !strings.HasPrefix(path, dir) {
			t.Errorf("%s path %q not under account dir %q", name, path, dir)
		}
	}
}
