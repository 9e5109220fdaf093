package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
)

// Dump is the JSON export envelope.
type Dump struct {
	ExportedAt time.Time `json:"exportedAt"`
	User       struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
	*models.UserData
}

// WriteDataJSON writes the user's whole dataset as indented JSON.
func WriteDataJSON(w io.Writer, user *models.User, data *models.UserData, exported time.Time) error {
	dump := Dump{ExportedAt: exported.UTC(), UserData: data}
	dump.User.ID = user.ID
	dump.User.Email = user.Email
	dump.User.Name = user.Name()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}
