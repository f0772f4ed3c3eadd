package domain

const (
	// SentinelID replaces the id of an image that could not be fetched or
	// decoded. It is not backed by a file.
	SentinelID = "404"

	// Extension and MediaType describe the single normalized output format
	Extension = "jpg"
	MediaType = "image/jpeg"
)

// Image is a normalized picture owned by the article that references it
type Image struct {
	ID        string
	Data      []byte
	MediaType string
}

// FileName is the name the image is stored under and referenced by
func (i Image) FileName() string {
	return FileName(i.ID)
}

// FileName maps an image id, sentinel included, to its src reference
func FileName(id string) string {
	return id + "." + Extension
}

// IsSentinel reports whether id stands for a failed image
func IsSentinel(id string) bool {
	return id == SentinelID
}
