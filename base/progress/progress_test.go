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

package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ProgressTestSuite struct {
	suite.Suite
	tracer *Tracer
}

func (suite *ProgressTestSuite) SetupTest() {
	suite.tracer = NewTracer("test")
}

func (suite *ProgressTestSuite) TearDownTest() {
	suite.tracer.Close()
}

func (suite *ProgressTestSuite) TestLeafProgress() {
	_, span := suite.tracer.Start(context.Background(), "root", 100)
	progressList := suite.tracer.List()
	suite.Len(progressList, 1)
	suite.Equal("test", progressList[0].Tracer)
	suite.Equal("root", progressList[0].Name)
	suite.Equal(StatusRunning, progressList[0].Status)
	suite.Empty(progressList[0].Error)
	suite.Equal(100, progressList[0].Total)
	suite.Zero(progressList[0].Count)

	span.Add(10)
	progressList = suite.tracer.List()
	suite.Equal(10, progressList[0].Count)

	span.End()
	progressList = suite.tracer.List()
	suite.Equal(StatusComplete, progressList[0].Status)
	suite.Equal(100, progressList[0].Count)
	suite.False(progressList[0].FinishTime.Before(progressList[0].StartTime))

	span.Fail(errors.New("some error"))
	progressList = suite.tracer.List()
	suite.Equal(StatusFailed, progressList[0].Status)
	suite.Equal("some error", progressList[0].Error)
}

func (suite *ProgressTestSuite) TestChildProgress() {
	ctx, root := suite.tracer.Start(context.Background(), "root", 2)
	_, child := Start(ctx, "child", 8)
	child.Add(3)
	children := root.Children()
	suite.Len(children, 1)
	suite.Equal("test", children[0].Tracer)
	suite.Equal("child", children[0].Name)
	suite.Equal(3, children[0].Count)
	suite.Equal(8, children[0].Total)
	// children are not listed as roots
	suite.Len(suite.tracer.List(), 1)
}

func (suite *ProgressTestSuite) TestDetachedSpan() {
	ctx, span := Start(context.Background(), "detached", 5)
	suite.NotNil(ctx)
	span.Add(2)
	suite.Equal(2, span.Count())
	suite.Empty(span.Progress().Tracer)
	span.End()
	suite.Equal(StatusComplete, span.Progress().Status)
}

func (suite *ProgressTestSuite) TestSubscribe() {
	updates := make(chan Progress, eventBufferSize)
	suite.tracer.Subscribe(func(p Progress) {
		updates <- p
	})
	_, span := suite.tracer.Start(context.Background(), "root", 3)
	span.Add(1)
	span.End()
	var last Progress
	for last.Status != StatusComplete {
		select {
		case last = <-updates:
		case <-time.After(time.Second):
			suite.FailNow("no progress update received")
		}
	}
	suite.Equal("root", last.Name)
	suite.Equal(3, last.Count)
}

func (suite *ProgressTestSuite) TestCloseTwice() {
	suite.tracer.Subscribe(func(Progress) {})
	suite.tracer.Close()
	suite.tracer.Close()
	_, span := suite.tracer.Start(context.Background(), "after close", 1)
	suite.NotPanics(span.End)
}

func TestProgress(t *testing.T) {
	suite.Run(t, new(ProgressTestSuite))
}
