package api

import "fmt"

const (
	scheme      = "https"
	apisSegment = "_apis/"
)

// CollectionURL returns the collection root, https://host[:port]/collection/.
// Port 80 is left implicit; every other port is written out. The scheme is
// always https.
func CollectionURL(host string, port int, collection string) string {
	if port == 80 {
		return fmt.Sprintf("%s://%s/%s/", scheme, host, collection)
	}
	return fmt.Sprintf("%s://%s:%d/%s/", scheme, host, port, collection)
}

// BaseURL returns the API root of a collection URL.
func BaseURL(collectionURL string) string {
	return collectionURL + apisSegment
}

// ResourceURL returns the URL of resource under the API root, optionally
// scoped to project (collection/project/_apis/resource).
func ResourceURL(collectionURL, project, resource string) string {
	base := collectionURL
	if project != "" {
		base += project + "/"
	}
	return base + apisSegment + resource
}
