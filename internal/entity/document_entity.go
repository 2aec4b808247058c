package entity

type Document struct {
	Id             int64
	Title          string
	Link           string
	IsFree         bool
	ClassTag       string
	SearchKeywords string
}

// Locked reports whether the document is off limits for the given tier.
func (d *Document) Locked(premium bool) bool {
	return !d.IsFree && !premium
}
