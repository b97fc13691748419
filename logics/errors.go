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

package logics

import "github.com/juju/errors"

const (
	ErrOutOfBounds = errors.ConstError("user out of bounds")
	ErrEmptyMatrix = errors.ConstError("empty user-item matrix")
	ErrUnknownUser = errors.ConstError("unknown user")
	ErrConvergence = errors.ConstError("pagerank failed to converge")
)

// Score is the score of a movie for a user.
type Score struct {
	MovieId int     `json:"movie_id"`
	Score   float64 `json:"score"`
}
