package entity

import "time"

// PendingUpdate is the persisted record of a download that completed
// but has not yet been installed. It is written once per completed
// download, read once at startup, then either cleared or converted
// into a JustUpdated record.
//
// The JSON form is the wire format of the state store and must stay
// forward-readable: new fields are optional and default safely, since
// the record may be read by an application version that postdates the
// one that wrote it.
type PendingUpdate struct {
	VersionName    string         `json:"version_name"`
	ReleaseNote    string         `json:"release_note,omitempty"`
	Channel        Channel        `json:"channel"`
	SavePath       string         `json:"save_path"`
	FileSize       int64          `json:"file_size,omitempty"`
	UpdateType     UpdateType     `json:"update_type,omitempty"`
	DownloadSource DownloadSource `json:"download_source,omitempty"`
	SHA256         string         `json:"sha256,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// ToUpdateInfo rebuilds the in-memory update info from a persisted
// pending record, as used when resuming after a restart.
func (p *PendingUpdate) ToUpdateInfo() *UpdateInfo {
	return &UpdateInfo{
		HasUpdate:      true,
		VersionName:    p.VersionName,
		ReleaseNote:    p.ReleaseNote,
		Channel:        p.Channel,
		FileSize:       p.FileSize,
		UpdateType:     p.UpdateType,
		DownloadSource: p.DownloadSource,
		SHA256:         p.SHA256,
	}
}

// JustUpdated is the persisted record written just before the restart
// that completes an installation. It is consumed exactly once on the
// next startup to surface a post-update notice.
type JustUpdated struct {
	PreviousVersion string  `json:"previous_version"`
	NewVersion      string  `json:"new_version"`
	ReleaseNote     string  `json:"release_note,omitempty"`
	Channel         Channel `json:"channel"`
}
