package ingestion

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/spacesedan/newsmood/internal/models"
)

const (
	UnknownSource = "Unknown"
	UnknownAuthor = "Unknown"
	redditBaseURL = "https://www.reddit.com"
)

// CleanArticle flattens a NewsAPI article into the record shape the
// analyzers read. Markup in the text fields is reduced to its text.
func CleanArticle(raw models.NewsAPIArticle, fetchedAt time.Time) models.Article {
	return models.Article{
		"title":        StripHTML(raw.Title),
		"description":  StripHTML(raw.Description),
		"content":      StripHTML(raw.Content),
		"url":          raw.URL,
		"source":       orDefault(raw.Source.Name, UnknownSource),
		"author":       orDefault(raw.Author, UnknownAuthor),
		"published_at": raw.PublishedAt,
		"fetched_at":   fetchedAt.Format(time.RFC3339),
		"url_to_image": raw.URLToImage,
	}
}

func CleanFeedItem(feedTitle string, item *gofeed.Item, fetchedAt time.Time) models.Article {
	author := ""
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = item.Authors[0].Name
	}
	published := item.Published
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	image := ""
	if item.Image != nil {
		image = item.Image.URL
	}

	return models.Article{
		"title":        StripHTML(item.Title),
		"description":  StripHTML(item.Description),
		"content":      StripHTML(item.Content),
		"url":          item.Link,
		"source":       orDefault(strings.TrimSpace(feedTitle), UnknownSource),
		"author":       orDefault(author, UnknownAuthor),
		"published_at": published,
		"fetched_at":   fetchedAt.Format(time.RFC3339),
		"url_to_image": image,
	}
}

// CleanRedditPost uses the post's self text as both description and
// content; link posts have neither.
func CleanRedditPost(post models.RedditAPIChildData, fetchedAt time.Time) models.Article {
	published := ""
	if post.CreatedUTC > 0 {
		published = time.Unix(int64(post.CreatedUTC), 0).UTC().Format(time.RFC3339)
	}
	link := post.URL
	if post.Permalink != "" {
		link = redditBaseURL + post.Permalink
	}
	source := UnknownSource
	if post.Subreddit != "" {
		source = "r/" + post.Subreddit
	}

	return models.Article{
		"title":        post.Title,
		"description":  post.Selftext,
		"content":      post.Selftext,
		"url":          link,
		"source":       source,
		"author":       orDefault(post.Author, UnknownAuthor),
		"published_at": published,
		"fetched_at":   fetchedAt.Format(time.RFC3339),
		"url_to_image": "",
		"score":        post.Ups,
	}
}

// StripHTML returns the text content of s with whitespace collapsed. Strings
// without markup are returned unchanged.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
