package models

import (
	"sort"
	"time"
)

// TimeFormat renders timestamps as ISO-8601 UTC with millisecond precision.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// FormatTime converts t to the wire timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// UserResponse is the authenticated user's own representation.
type UserResponse struct {
	Email    string  `json:"email"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

// UserEnvelope wraps a single user for the wire.
type UserEnvelope struct {
	User UserResponse `json:"user"`
}

// Profile is the public view of a user relative to a viewer.
type Profile struct {
	Username  string  `json:"username"`
	Bio       *string `json:"bio"`
	Image     *string `json:"image"`
	Following bool    `json:"following"`
}

// ProfileEnvelope wraps a single profile for the wire.
type ProfileEnvelope struct {
	Profile Profile `json:"profile"`
}

// ArticleResponse is the wire representation of an article.
type ArticleResponse struct {
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Body           string   `json:"body"`
	TagList        []string `json:"tagList"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
	Favorited      bool     `json:"favorited"`
	FavoritesCount int64    `json:"favoritesCount"`
	Author         Profile  `json:"author"`
}

// ArticleEnvelope wraps a single article for the wire.
type ArticleEnvelope struct {
	Article ArticleResponse `json:"article"`
}

// MultipleArticlesResponse is returned by the list and feed endpoints.
type MultipleArticlesResponse struct {
	Articles      []ArticleResponse `json:"articles"`
	ArticlesCount int64             `json:"articlesCount"`
}

// CommentResponse is the wire representation of a comment.
type CommentResponse struct {
	ID        uint    `json:"id"`
	Body      string  `json:"body"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
	Author    Profile `json:"author"`
}

// CommentEnvelope wraps a single comment for the wire.
type CommentEnvelope struct {
	Comment CommentResponse `json:"comment"`
}

// MultipleCommentsResponse is returned when listing an article's comments.
type MultipleCommentsResponse struct {
	Comments []CommentResponse `json:"comments"`
}

// TagsResponse lists every known tag.
type TagsResponse struct {
	Tags []string `json:"tags"`
}

// NewUserResponse projects u with a freshly issued token.
func NewUserResponse(u *User, token string) UserResponse {
	return UserResponse{
		Email:    u.Email,
		Token:    token,
		Username: u.Username,
		Bio:      u.Bio,
		Image:    u.Image,
	}
}

// NewProfile projects u as seen by a viewer who does or does not follow them.
func NewProfile(u *User, following bool) Profile {
	return Profile{
		Username:  u.Username,
		Bio:       u.Bio,
		Image:     u.Image,
		Following: following,
	}
}

// NewArticleResponse projects a, with tags sorted by name.
func NewArticleResponse(a *Article) ArticleResponse {
	tags := a.TagNames()
	sort.Strings(tags)
	return ArticleResponse{
		Slug:           a.Slug,
		Title:          a.Title,
		Description:    a.Description,
		Body:           a.Body,
		TagList:        tags,
		CreatedAt:      FormatTime(a.CreatedAt),
		UpdatedAt:      FormatTime(a.UpdatedAt),
		Favorited:      a.Favorited,
		FavoritesCount: a.FavoritesCount,
		Author:         NewProfile(&a.Author, a.AuthorFollowed),
	}
}

// NewMultipleArticlesResponse projects a page of articles and the unpaged total.
func NewMultipleArticlesResponse(articles []*Article, total int64) MultipleArticlesResponse {
	out := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, NewArticleResponse(a))
	}
	return MultipleArticlesResponse{Articles: out, ArticlesCount: total}
}

// NewCommentResponse projects c.
func NewCommentResponse(c *Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		Body:      c.Body,
		CreatedAt: FormatTime(c.CreatedAt),
		UpdatedAt: FormatTime(c.UpdatedAt),
		Author:    NewProfile(&c.Author, c.AuthorFollowed),
	}
}

// NewMultipleCommentsResponse projects a list of comments.
func NewMultipleCommentsResponse(comments []*Comment) MultipleCommentsResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, NewCommentResponse(c))
	}
	return MultipleCommentsResponse{Comments: out}
}

// Request bodies.

// RegisterRequest is the body of POST /users.
type RegisterRequest struct {
	User struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	User struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

// UpdateUserRequest is the body of PUT /user. Absent fields are left untouched.
type UpdateUserRequest struct {
	User struct {
		Email    *string `json:"email"`
		Username *string `json:"username"`
		Password *string `json:"password"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
	} `json:"user"`
}

// CreateArticleRequest is the body of POST /articles.
type CreateArticleRequest struct {
	Article struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Body        string   `json:"body"`
		TagList     []string `json:"tagList"`
	} `json:"article"`
}

// UpdateArticleRequest is the body of PUT /articles/:slug.
type UpdateArticleRequest struct {
	Article struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Body        *string   `json:"body"`
		TagList     *[]string `json:"tagList"`
	} `json:"article"`
}

// CreateCommentRequest is the body of POST /articles/:slug/comments.
type CreateCommentRequest struct {
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
}
