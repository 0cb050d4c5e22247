package wiki

import "time"

// Article type tags.
const (
	ArticleTypeRichText    = 1
	ArticleTypeMarkdown    = 2
	ArticleTypeAttachment  = 3
	ArticleTypeMind        = 4
	ArticleTypeSpreadsheet = 5
)

// Article is one ordered content item attached to a tree node. Unlike tree
// nodes, every article carries its own version token; updates are guarded
// per article, not per tree.
type Article struct {
	ID      int64     `json:"id"`
	SpaceID int64     `json:"spaceId"`
	NodeID  int64     `json:"nodeId"`
	Type    int       `json:"type"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Search  string    `json:"-"`
	Level   int       `json:"level"`
	Author  int64     `json:"author"`
	Version string    `json:"version"`
	Pos     int       `json:"pos"`
	Deleted bool      `json:"-"`
	Ctime   time.Time `json:"ctime"`
	Stime   time.Time `json:"stime"`
	Mtime   time.Time `json:"mtime"`
}

// ArticleContent is the caller-editable portion of an article.
type ArticleContent struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Search string `json:"search"`
}

// ArticleVersion pairs an article id with its current version token, for
// cheap client-side staleness checks across a whole page.
type ArticleVersion struct {
	ID      int64  `json:"id"`
	Version string `json:"version"`
}

// ArticleHistory is an append-only snapshot of an article's state taken
// immediately before a content update. History rows are never mutated or
// deleted.
type ArticleHistory struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	Version   string    `json:"version"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Search    string    `json:"-"`
	Author    int64     `json:"author"`
	Stime     time.Time `json:"stime"`
}
