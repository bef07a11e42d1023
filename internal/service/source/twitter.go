package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	twitter "github.com/g8rswimmer/go-twitter/v2"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
)

// TwitterConfig holds credentials for the Twitter API.
// BearerToken is enough for read-only v2 endpoints; the OAuth1 fields are
// used instead when all four are present.
type TwitterConfig struct {
	BearerToken       string
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// TwitterClient implements tracking.SourceClient against the Twitter v2 API
type TwitterClient struct {
	client *twitter.Client
}

type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+a.token)
}

type noopAuthorizer struct{}

func (noopAuthorizer) Add(*http.Request) {}

// NewTwitterClient creates a Twitter platform client
func NewTwitterClient(cfg TwitterConfig) (*TwitterClient, error) {
	switch {
	case cfg.APIKey != "" && cfg.APISecret != "" && cfg.AccessToken != "" && cfg.AccessTokenSecret != "":
		oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
		token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
		return &TwitterClient{
			client: &twitter.Client{
				Authorizer: noopAuthorizer{},
				Client:     oauthConfig.Client(oauth1.NoContext, token),
				Host:       "https://api.twitter.com",
			},
		}, nil

	case cfg.BearerToken != "":
		return &TwitterClient{
			client: &twitter.Client{
				Authorizer: bearerAuthorizer{token: cfg.BearerToken},
				Client:     &http.Client{Timeout: 10 * time.Second},
				Host:       "https://api.twitter.com",
			},
		}, nil

	default:
		return nil, fmt.Errorf("twitter credentials not configured")
	}
}

// Platform returns the platform name
func (c *TwitterClient) Platform() string {
	return "twitter"
}

var tweetFields = []twitter.TweetField{
	twitter.TweetFieldAuthorID,
	twitter.TweetFieldCreatedAt,
	twitter.TweetFieldPublicMetrics,
	twitter.TweetFieldEntities,
	twitter.TweetFieldReferencedTweets,
	twitter.TweetFieldGeo,
}

var tweetExpansions = []twitter.Expansion{
	twitter.ExpansionAuthorID,
	twitter.ExpansionGeoPlaceID,
}

var placeFields = []twitter.PlaceField{
	twitter.PlaceFieldGeo,
}

// FetchPostByID returns a single tweet, or nil if it does not exist
func (c *TwitterClient) FetchPostByID(ctx context.Context, id string) (*post.Post, error) {
	resp, err := c.client.TweetLookup(ctx, []string{id}, twitter.TweetLookupOpts{
		TweetFields: tweetFields,
		Expansions:  tweetExpansions,
		UserFields:  []twitter.UserField{twitter.UserFieldUserName},
		PlaceFields: placeFields,
	})
	if err != nil {
		return nil, fmt.Errorf("tweet lookup: %w", err)
	}

	if len(resp.Raw.Tweets) == 0 {
		return nil, nil
	}

	p := c.toPost(resp.Raw.Tweets[0], userHandles(resp.Raw.Includes), includedPlaces(resp.Raw.Includes))
	return &p, nil
}

// FetchTimeline returns up to maxResults recent tweets for a handle
func (c *TwitterClient) FetchTimeline(ctx context.Context, handle string, maxResults int) ([]post.Post, error) {
	handle = strings.TrimPrefix(handle, "@")

	users, err := c.client.UserNameLookup(ctx, []string{handle}, twitter.UserLookupOpts{})
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if len(users.Raw.Users) == 0 {
		return nil, nil
	}

	resp, err := c.client.UserTweetTimeline(ctx, users.Raw.Users[0].ID, twitter.UserTweetTimelineOpts{
		MaxResults:  maxResults,
		TweetFields: tweetFields,
		Expansions:  tweetExpansions,
		UserFields:  []twitter.UserField{twitter.UserFieldUserName},
		PlaceFields: placeFields,
	})
	if err != nil {
		return nil, fmt.Errorf("user timeline: %w", err)
	}

	return c.toPosts(resp.Raw.Tweets, userHandles(resp.Raw.Includes), includedPlaces(resp.Raw.Includes)), nil
}

// SearchTerm returns up to maxResults recent tweets matching a term
func (c *TwitterClient) SearchTerm(ctx context.Context, term string, maxResults int, before *time.Time) ([]post.Post, error) {
	opts := twitter.TweetRecentSearchOpts{
		MaxResults:  maxResults,
		TweetFields: tweetFields,
		Expansions:  tweetExpansions,
		UserFields:  []twitter.UserField{twitter.UserFieldUserName},
		PlaceFields: placeFields,
	}
	if before != nil {
		opts.EndTime = *before
	}

	resp, err := c.client.TweetRecentSearch(ctx, term, opts)
	if err != nil {
		return nil, fmt.Errorf("recent search: %w", err)
	}

	return c.toPosts(resp.Raw.Tweets, userHandles(resp.Raw.Includes), includedPlaces(resp.Raw.Includes)), nil
}

func userHandles(includes *twitter.TweetRawIncludes) map[string]string {
	handles := make(map[string]string)
	if includes == nil {
		return handles
	}
	for _, u := range includes.Users {
		handles[u.ID] = u.UserName
	}
	return handles
}

func includedPlaces(includes *twitter.TweetRawIncludes) map[string]*twitter.PlaceObj {
	places := make(map[string]*twitter.PlaceObj)
	if includes == nil {
		return places
	}
	for _, p := range includes.Places {
		places[p.ID] = p
	}
	return places
}

func (c *TwitterClient) toPosts(tweets []*twitter.TweetObj, handles map[string]string, places map[string]*twitter.PlaceObj) []post.Post {
	posts := make([]post.Post, 0, len(tweets))
	for _, t := range tweets {
		posts = append(posts, c.toPost(t, handles, places))
	}
	return posts
}

func (c *TwitterClient) toPost(t *twitter.TweetObj, handles map[string]string, places map[string]*twitter.PlaceObj) post.Post {
	ts, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		ts = time.Now().UTC()
	}

	p := post.Post{
		ID:           t.ID,
		Platform:     "twitter",
		AuthorID:     t.AuthorID,
		AuthorHandle: handles[t.AuthorID],
		Content:      t.Text,
		Timestamp:    ts,
		URL:          fmt.Sprintf("https://twitter.com/i/status/%s", t.ID),
		Engagement:   map[string]int{},
	}

	if t.PublicMetrics != nil {
		p.Engagement["likes"] = t.PublicMetrics.Likes
		p.Engagement["retweets"] = t.PublicMetrics.Retweets
		p.Engagement["replies"] = t.PublicMetrics.Replies
		p.Engagement["quotes"] = t.PublicMetrics.Quotes
	}

	for _, ref := range t.ReferencedTweets {
		kind, ok := referenceKind(ref.Type)
		if !ok {
			continue
		}
		p.References = append(p.References, post.Reference{
			Kind:         kind,
			TargetPostID: ref.ID,
		})
	}

	if t.Entities != nil {
		for _, tag := range t.Entities.HashTags {
			p.Hashtags = append(p.Hashtags, tag.Tag)
		}
		for _, mention := range t.Entities.Mentions {
			p.Mentions = append(p.Mentions, mention.UserName)
		}
	}

	p.Location = geoLocation(t.Geo, places)

	return p
}

// geoLocation maps tweet geo onto a domain location: exact point
// coordinates when present, otherwise the centroid of the tagged place's
// bounding box. Tweet coordinates arrive GeoJSON-style, longitude first.
func geoLocation(geo *twitter.TweetGeoObj, places map[string]*twitter.PlaceObj) *post.Location {
	if geo == nil {
		return nil
	}

	if len(geo.Coordinates.Coordinates) == 2 {
		return &post.Location{
			Latitude:  geo.Coordinates.Coordinates[1],
			Longitude: geo.Coordinates.Coordinates[0],
		}
	}

	place, ok := places[geo.PlaceID]
	if !ok || place.Geo == nil || len(place.Geo.BBox) != 4 {
		return nil
	}
	return &post.Location{
		Latitude:  (place.Geo.BBox[1] + place.Geo.BBox[3]) / 2,
		Longitude: (place.Geo.BBox[0] + place.Geo.BBox[2]) / 2,
	}
}

func referenceKind(t string) (post.ReferenceKind, bool) {
	switch t {
	case "replied_to":
		return post.ReferenceReply, true
	case "retweeted":
		return post.ReferenceRepost, true
	case "quoted":
		return post.ReferenceQuote, true
	default:
		return "", false
	}
}

var statusIDPattern = regexp.MustCompile(`(?:twitter\.com|x\.com)/\w+/status/(\d+)|/status/(\d+)`)

// ExtractPostID pulls a tweet id out of a post URL. A bare numeric id is
// accepted as-is.
func ExtractPostID(input string) (string, bool) {
	input = strings.TrimSpace(input)

	if m := statusIDPattern.FindStringSubmatch(input); m != nil {
		if m[1] != "" {
			return m[1], true
		}
		return m[2], true
	}

	if input != "" && strings.IndexFunc(input, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
		return input, true
	}

	return "", false
}

var _ tracking.SourceClient = (*TwitterClient)(nil)
