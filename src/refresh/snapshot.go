package refresh

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tachikoma-agent/dashboard/src/model"
)

// Snapshot is the bundle of derived state emitted after a changed tick. The
// presentation layer renders it and never writes back; each emission is a
// fresh value.
type Snapshot struct {
	Sessions       []model.Session
	Tree           []*model.SessionTree
	SelectedID     string
	SelectedStats  *model.SessionStats
	SelectedTodos  []model.Todo
	SelectedSkills []model.Skill
	SelectedTokens *model.SessionTokens
	ModelUsage     []model.ModelUsage
	StoreAvailable bool
}

// sessionProjection is the change-detection key. Deliberately narrower than
// the full row: columns that don't affect the rendered tree must not trigger
// rebuilds, while time_updated catches sessions whose activity changed even
// when title and directory are static.
type sessionProjection struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Directory   string `json:"directory"`
	TimeUpdated int64  `json:"time_updated"`
}

// SessionsHash fingerprints a session list for change detection. A marshal
// failure degrades to a unique sentinel, trading one forced rebuild for a
// loop that cannot crash on hashing.
func SessionsHash(sessions []model.Session) string {
	proj := make([]sessionProjection, len(sessions))
	for i, s := range sessions {
		proj[i] = sessionProjection{
			ID:          s.ID,
			Title:       s.Title,
			Directory:   s.Directory,
			TimeUpdated: s.TimeUpdated,
		}
	}

	data, err := json.Marshal(proj)
	if err != nil {
		return fmt.Sprintf("unhashable:%d", time.Now().UnixNano())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
