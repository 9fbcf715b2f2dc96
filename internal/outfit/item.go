package outfit

import (
	"strconv"
	"strings"
	"time"
)

// DefaultGroupName labels a group whose request carried neither mood nor TPO.
const DefaultGroupName = "스타일 추천"

// GroupMeta is shared by every item produced from one routing call.
type GroupMeta struct {
	ID      string `json:"groupId"`
	Name    string `json:"groupName"`
	Date    string `json:"groupDate,omitempty"`
	Weather string `json:"groupWeather,omitempty"`
	TPO     string `json:"groupTPO,omitempty"`
}

// NewGroupMeta builds group metadata for a routing call made at now.
// The group ID is the millisecond timestamp, so items routed in the same
// call share it and later calls sort after earlier ones.
func NewGroupMeta(now time.Time, style StyleRequest, date, weather string) GroupMeta {
	return GroupMeta{
		ID:      strconv.FormatInt(now.UnixMilli(), 10),
		Name:    GroupName(style.Mood, style.TPO),
		Date:    date,
		Weather: weather,
		TPO:     style.TPO,
	}
}

// GroupName joins mood and TPO, falling back to DefaultGroupName.
func GroupName(mood, tpo string) string {
	name := strings.TrimSpace(strings.TrimSpace(mood) + " " + strings.TrimSpace(tpo))
	if name == "" {
		return DefaultGroupName
	}
	return name
}

// CategoryItem is one clothing item lifted out of a recommendation, tagged
// with the group it was routed in.
type CategoryItem struct {
	Category    Category `json:"category"`
	Description string   `json:"itemDescription"`
	GroupMeta
}

// Key identifies an item for deduplication within one destination list.
func (i CategoryItem) Key() string {
	return string(i.Category) + "\x00" + i.Description
}
