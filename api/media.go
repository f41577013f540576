package api

import "context"

// UploadToken is the media-storage upload credential.
type UploadToken struct {
	Token  string `json:"token"`
	Domain string `json:"domain"`
}

// VideoCreateRequest registers an uploaded video for transcoding.
type VideoCreateRequest struct {
	Title   string `json:"title"`
	FileKey string `json:"file_key"`
}

// VideoInfo describes a registered video.
type VideoInfo struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// MediaUploadToken fetches an upload credential for the media store.
func (c *Client) MediaUploadToken(ctx context.Context) (UploadToken, error) {
	var token UploadToken
	if err := c.get(ctx, "/media/token", &token); err != nil {
		return UploadToken{}, err
	}
	return token, nil
}

// CreateVideo registers an uploaded file for server-side transcoding.
func (c *Client) CreateVideo(ctx context.Context, req VideoCreateRequest) (VideoInfo, error) {
	var info VideoInfo
	if err := c.post(ctx, "/media/videos", req, &info); err != nil {
		return VideoInfo{}, err
	}
	return info, nil
}
