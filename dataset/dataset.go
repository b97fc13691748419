// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/gorse-io/movierank/base/log"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	ErrSchema       = errors.ConstError("schema error")
	ErrEmptyDataset = errors.ConstError("empty dataset")
)

const (
	ColumnUserId    = "userId"
	ColumnMovieId   = "movieId"
	ColumnRating    = "rating"
	ColumnTimestamp = "timestamp"
	ColumnTitle     = "title"
	ColumnGenres    = "genres"
	ColumnImdbId    = "imdbId"
	ColumnTmdbId    = "tmdbId"
)

const noGenres = "(no genres listed)"

type Rating struct {
	UserId    int
	MovieId   int
	Rating    float64
	Timestamp time.Time
}

type Movie struct {
	MovieId int      `json:"movie_id"`
	Title   string   `json:"title"`
	Genres  []string `json:"genres"`
	ImdbId  string   `json:"imdb_id,omitempty"`
	TmdbId  string   `json:"tmdb_id,omitempty"`
}

// ImdbURL returns the IMDB page of the movie, or an empty string if the movie has no IMDB id.
func (m Movie) ImdbURL() string {
	if m.ImdbId == "" {
		return ""
	}
	id := strings.TrimPrefix(m.ImdbId, "tt")
	if n, err := strconv.Atoi(id); err == nil {
		return fmt.Sprintf("http://www.imdb.com/title/tt%07d", n)
	}
	return "http://www.imdb.com/title/tt" + id
}

// Table is already-parsed tabular data. Every row holds one cell per column.
type Table struct {
	Columns []string
	Rows    [][]string
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column and whether it exists.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, column := range t.Columns {
		if column == name {
			return i, true
		}
	}
	return -1, false
}

// requireColumns returns the positions of columns or ErrSchema if any of them is absent.
func (t *Table) requireColumns(table string, columns ...string) ([]int, error) {
	positions := make([]int, len(columns))
	for i, column := range columns {
		pos, ok := t.ColumnIndex(column)
		if !ok {
			return nil, errors.Annotatef(ErrSchema, "%s table has no column %q", table, column)
		}
		positions[i] = pos
	}
	return positions, nil
}

// cell returns the trimmed cell of a row, or ErrSchema if the row is too short.
func (t *Table) cell(table string, row, col int) (string, error) {
	if col >= len(t.Rows[row]) {
		return "", errors.Annotatef(ErrSchema, "%s table row %d has %d of %d cells",
			table, row+1, len(t.Rows[row]), len(t.Columns))
	}
	return strings.TrimSpace(t.Rows[row][col]), nil
}

func parseId(table, column string, row int, text string) (int, error) {
	id, err := strconv.Atoi(text)
	if err != nil || id <= 0 {
		return 0, errors.Annotatef(ErrSchema, "%s table row %d: %s %q is not a positive integer",
			table, row+1, column, text)
	}
	return id, nil
}

// parseRating converts a rating cell. Cells that are not finite numbers become 0.
func parseRating(text string) (float64, bool) {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// ParseRatings converts a ratings table into typed records. Required columns are userId,
// movieId and rating. An optional timestamp column accepts unix seconds or formatted dates.
func ParseRatings(t *Table) ([]Rating, error) {
	positions, err := t.requireColumns("ratings", ColumnUserId, ColumnMovieId, ColumnRating)
	if err != nil {
		return nil, errors.Trace(err)
	}
	tsCol, hasTimestamp := t.ColumnIndex(ColumnTimestamp)
	ratings := make([]Rating, 0, t.Len())
	coerced, badTimestamps := 0, 0
	for i := range t.Rows {
		var cells [3]string
		for j, pos := range positions {
			if cells[j], err = t.cell("ratings", i, pos); err != nil {
				return nil, errors.Trace(err)
			}
		}
		var rating Rating
		if rating.UserId, err = parseId("ratings", ColumnUserId, i, cells[0]); err != nil {
			return nil, errors.Trace(err)
		}
		if rating.MovieId, err = parseId("ratings", ColumnMovieId, i, cells[1]); err != nil {
			return nil, errors.Trace(err)
		}
		var ok bool
		if rating.Rating, ok = parseRating(cells[2]); !ok {
			coerced++
		}
		if hasTimestamp && tsCol < len(t.Rows[i]) {
			if text := strings.TrimSpace(t.Rows[i][tsCol]); text != "" {
				if rating.Timestamp, err = parseTimestamp(text); err != nil {
					badTimestamps++
				}
			}
		}
		ratings = append(ratings, rating)
	}
	if coerced > 0 {
		log.Logger().Debug("coerce non-numeric ratings to zero", zap.Int("n_coerced", coerced))
	}
	if badTimestamps > 0 {
		log.Logger().Debug("ignore unparsable timestamps", zap.Int("n_timestamps", badTimestamps))
	}
	return ratings, nil
}

// parseTimestamp accepts unix seconds or any layout dateparse recognizes.
func parseTimestamp(text string) (time.Time, error) {
	if lo.EveryBy([]rune(text), unicode.IsDigit) {
		seconds, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return time.Time{}, errors.Trace(err)
		}
		return time.Unix(seconds, 0).UTC(), nil
	}
	return dateparse.ParseAny(text)
}

// ParseMovies converts a movies table into typed records. Required columns are movieId
// and title. Genres are separated by '|'.
func ParseMovies(t *Table) ([]Movie, error) {
	positions, err := t.requireColumns("movies", ColumnMovieId, ColumnTitle)
	if err != nil {
		return nil, errors.Trace(err)
	}
	optional := func(row int, column string) string {
		if pos, ok := t.ColumnIndex(column); ok && pos < len(t.Rows[row]) {
			return strings.TrimSpace(t.Rows[row][pos])
		}
		return ""
	}
	movies := make([]Movie, 0, t.Len())
	for i := range t.Rows {
		idText, err := t.cell("movies", i, positions[0])
		if err != nil {
			return nil, errors.Trace(err)
		}
		title, err := t.cell("movies", i, positions[1])
		if err != nil {
			return nil, errors.Trace(err)
		}
		var movie Movie
		if movie.MovieId, err = parseId("movies", ColumnMovieId, i, idText); err != nil {
			return nil, errors.Trace(err)
		}
		movie.Title = title
		movie.Genres = splitGenres(optional(i, ColumnGenres))
		movie.ImdbId = optional(i, ColumnImdbId)
		movie.TmdbId = optional(i, ColumnTmdbId)
		movies = append(movies, movie)
	}
	return movies, nil
}

func splitGenres(text string) []string {
	if text == "" || text == noGenres {
		return nil
	}
	return lo.Filter(strings.Split(text, "|"), func(genre string, _ int) bool {
		return genre != ""
	})
}

// Load builds the user-item matrix and the movie catalog from a ratings table and a
// movies table. Ratings of movies missing from the catalog are dropped.
func Load(ratings, movies *Table) (*UserItemMatrix, *Catalog, error) {
	ratingRecords, err := ParseRatings(ratings)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	movieRecords, err := ParseMovies(movies)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return LoadRatings(ratingRecords, movieRecords)
}

// LoadRatings is Load for typed records.
func LoadRatings(ratings []Rating, movies []Movie) (*UserItemMatrix, *Catalog, error) {
	if len(ratings) == 0 {
		return nil, nil, errors.Annotate(ErrEmptyDataset, "no ratings")
	}
	if len(movies) == 0 {
		return nil, nil, errors.Annotate(ErrEmptyDataset, "no movies")
	}
	for i, movie := range movies {
		if movie.MovieId <= 0 {
			return nil, nil, errors.Annotatef(ErrSchema, "movie %d has invalid id %d", i+1, movie.MovieId)
		}
	}
	catalog := NewCatalog(movies)
	merged := make([]Rating, 0, len(ratings))
	for i, rating := range ratings {
		if rating.UserId <= 0 || rating.MovieId <= 0 {
			return nil, nil, errors.Annotatef(ErrSchema, "rating %d has invalid ids (%d, %d)",
				i+1, rating.UserId, rating.MovieId)
		}
		if _, ok := catalog.Get(rating.MovieId); !ok {
			continue
		}
		if math.IsNaN(rating.Rating) || math.IsInf(rating.Rating, 0) {
			rating.Rating = 0
		}
		merged = append(merged, rating)
	}
	if dropped := len(ratings) - len(merged); dropped > 0 {
		log.Logger().Warn("drop ratings of unknown movies", zap.Int("n_dropped", dropped))
	}
	if len(merged) == 0 {
		return nil, nil, errors.Annotate(ErrEmptyDataset, "no rating references a known movie")
	}
	matrix := NewUserItemMatrix(merged)
	log.Logger().Info("load dataset",
		zap.Int("n_users", matrix.CountUsers()),
		zap.Int("n_movies", catalog.Count()),
		zap.Int("n_ratings", len(merged)))
	return matrix, catalog, nil
}

// Catalog is a read-only lookup of movies by id.
type Catalog struct {
	movies map[int]Movie
	ids    []int
}

// NewCatalog indexes movies by id. A later movie with the same id replaces an earlier one.
func NewCatalog(movies []Movie) *Catalog {
	c := &Catalog{movies: make(map[int]Movie, len(movies))}
	for _, movie := range movies {
		c.movies[movie.MovieId] = movie
	}
	c.ids = lo.Keys(c.movies)
	sort.Ints(c.ids)
	return c
}

func (c *Catalog) Get(movieId int) (Movie, bool) {
	movie, ok := c.movies[movieId]
	return movie, ok
}

func (c *Catalog) Count() int {
	return len(c.ids)
}

// MovieIds returns movie ids in ascending order.
func (c *Catalog) MovieIds() []int {
	return append([]int(nil), c.ids...)
}

// Title returns the title of a movie, or an empty string if it is not in the catalog.
func (c *Catalog) Title(movieId int) string {
	return c.movies[movieId].Title
}

// AttachLinks merges IMDB and TMDB ids from a links table into the catalog. Links of
// movies that are not in the catalog are ignored, as are empty link cells.
func AttachLinks(c *Catalog, links *Table) error {
	positions, err := links.requireColumns("links", ColumnMovieId, ColumnImdbId)
	if err != nil {
		return errors.Trace(err)
	}
	tmdbCol, hasTmdb := links.ColumnIndex(ColumnTmdbId)
	attached := 0
	for i := range links.Rows {
		idText, err := links.cell("links", i, positions[0])
		if err != nil {
			return errors.Trace(err)
		}
		movieId, err := parseId("links", ColumnMovieId, i, idText)
		if err != nil {
			return errors.Trace(err)
		}
		movie, ok := c.movies[movieId]
		if !ok {
			continue
		}
		if imdbId, _ := links.cell("links", i, positions[1]); imdbId != "" {
			movie.ImdbId = imdbId
		}
		if hasTmdb && tmdbCol < len(links.Rows[i]) {
			if tmdbId := strings.TrimSpace(links.Rows[i][tmdbCol]); tmdbId != "" {
				movie.TmdbId = tmdbId
			}
		}
		c.movies[movieId] = movie
		attached++
	}
	log.Logger().Debug("attach links", zap.Int("n_links", attached))
	return nil
}
