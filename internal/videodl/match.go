package videodl

import (
	"regexp"
	"strings"
)

type Platform string

const (
	Instagram Platform = "Instagram"
	TikTok    Platform = "TikTok"
)

const (
	instagramPattern = `https?://(www\.)?(instagram\.com|ddinstagram\.com)/(p|reels|reel|tv|stories)/[a-zA-Z0-9_-]+/?`
	tiktokPattern    = `https?://(www\.|vm\.|vt\.)?tiktok\.com/(@[\w.-]*/video/\d+|@/video/\d+|[\w]+/?)\S*`
)

var (
	instagramRe = regexp.MustCompile(instagramPattern)
	tiktokRe    = regexp.MustCompile(tiktokPattern)
	triggerRe   = regexp.MustCompile("(" + instagramPattern + "|" + tiktokPattern + ")")
)

// Link is a supported video URL found in a message.
type Link struct {
	Platform Platform
	URL      string
}

// Matches reports whether text contains any supported link anywhere.
func Matches(text string) bool {
	return triggerRe.MatchString(text)
}

// Find returns the link to download for a message. Messages that do not start
// with a URL are ignored, and Instagram wins over TikTok when both appear.
func Find(text string) (Link, bool) {
	if !Matches(text) || !strings.HasPrefix(text, "http") {
		return Link{}, false
	}
	if m := instagramRe.FindString(text); m != "" {
		return Link{Platform: Instagram, URL: m}, true
	}
	if m := tiktokRe.FindString(text); m != "" {
		return Link{Platform: TikTok, URL: m}, true
	}
	return Link{}, false
}

// OnlyLink reports whether the message consists of nothing but the link.
func OnlyLink(text string, link Link) bool {
	return strings.TrimSpace(text) == strings.TrimSpace(link.URL)
}
