package server

import (
	"net/url"
	"strings"
)

// encodePath percent-encodes each segment of a file path while preserving
// "/" as the separator, so "#", "?", spaces and unicode survive in URLs.
func encodePath(filePath string) string {
	segments := strings.Split(filePath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

type bucketURLs struct {
	URL    string `json:"url"`
	APIURL string `json:"api_url"`
}

func (s *Server) bucketURLs(bucketID string) bucketURLs {
	return bucketURLs{
		URL:    s.baseURL + "/" + bucketID,
		APIURL: s.baseURL + "/api/buckets/" + bucketID,
	}
}

type fileURLs struct {
	URL    string `json:"url"`
	RawURL string `json:"raw_url"`
	APIURL string `json:"api_url"`
}

func (s *Server) fileURLs(bucketID, filePath string) fileURLs {
	encoded := encodePath(filePath)
	return fileURLs{
		URL:    s.baseURL + "/" + bucketID + "/" + encoded,
		RawURL: s.baseURL + "/raw/" + bucketID + "/" + encoded,
		APIURL: s.baseURL + "/api/buckets/" + bucketID,
	}
}

func (s *Server) rawPath(bucketID, filePath string) string {
	return "/raw/" + bucketID + "/" + encodePath(filePath)
}
