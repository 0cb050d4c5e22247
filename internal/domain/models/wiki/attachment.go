package wiki

import "time"

// Attachment is the metadata row for a stored blob. The blob itself lives
// in the object store under StoreKey; this core treats it as opaque.
type Attachment struct {
	ID               int64     `json:"id"`
	SpaceID          int64     `json:"spaceId"`
	NodeID           int64     `json:"nodeId"`
	ArticleID        int64     `json:"articleId"`
	OriginalFilename string    `json:"originalFilename"`
	StoreKey         string    `json:"-"`
	Extension        string    `json:"extension"`
	Size             int64     `json:"size"`
	Uploader         int64     `json:"uploader"`
	Deleted          bool      `json:"-"`
	Ctime            time.Time `json:"ctime"`
	Mtime            time.Time `json:"mtime"`
}
