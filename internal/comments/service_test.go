package comments

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/UkralStul/fanfic-archive-service/internal/storage/inmemory"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWorkID = int64(1)

func votePtr(v domain.VoteType) *domain.VoteType { return &v }

func newTestService(t *testing.T) (*Service, *inmemory.Store) {
	store := inmemory.New()
	require.NoError(t, store.AddWork(domain.Work{ID: testWorkID, Title: "Work", Rating: domain.RatingGeneral}, nil))
	require.NoError(t, store.AddWork(domain.Work{ID: 2, Title: "Other", Rating: domain.RatingGeneral}, nil))
	log, _ := logtest.NewNullLogger()
	return NewService(store, NewObserver(), log), store
}

func createComment(t *testing.T, svc *Service, content string) *domain.Comment {
	c, err := svc.CreateComment(context.Background(), CreateCommentInput{WorkID: testWorkID, Content: content, AuthorName: "reader"})
	require.NoError(t, err)
	return c
}

func TestCreateComment_Success(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.CreateComment(context.Background(), CreateCommentInput{WorkID: testWorkID, Content: "  Loved it  ", AuthorName: " Ann "})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "Loved it", c.Content)
	assert.Equal(t, "Ann", c.AuthorName)
	assert.Zero(t, c.Upvotes)
	assert.Zero(t, c.Downvotes)
	assert.False(t, c.IsHidden)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestCreateComment_AnonymousAuthor(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.CreateComment(context.Background(), CreateCommentInput{WorkID: testWorkID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, AnonymousAuthor, c.AuthorName)
}

func TestCreateComment_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]CreateCommentInput{
		"empty content":  {WorkID: testWorkID, Content: "   "},
		"long content":   {WorkID: testWorkID, Content: strings.Repeat("я", MaxContentLength+1)},
		"long author":    {WorkID: testWorkID, Content: "ok", AuthorName: strings.Repeat("a", MaxAuthorLength+1)},
		"invalid workId": {WorkID: 0, Content: "ok"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateComment(ctx, in)
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}

	// Ровно 1000 символов в UTF-8 допустимо
	_, err := svc.CreateComment(ctx, CreateCommentInput{WorkID: testWorkID, Content: strings.Repeat("я", MaxContentLength)})
	assert.NoError(t, err)
}

func TestCreateComment_UnknownWork(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{WorkID: 999, Content: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCreateComment_PublishesToSubscribers(t *testing.T) {
	svc, _ := newTestService(t)
	ch, cancel := svc.Subscribe(testWorkID)
	defer cancel()

	created := createComment(t, svc, "live")

	select {
	case got := <-ch:
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "live", got.Content)
	case <-time.After(time.Second):
		t.Fatal("no comment published")
	}
}

func TestListComments_DefaultsAndPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		createComment(t, svc, "comment")
	}

	page, err := svc.ListComments(ctx, ListCommentsParams{WorkID: testWorkID})
	require.NoError(t, err)
	assert.Len(t, page.Comments, 10)
	assert.Equal(t, domain.Pagination{Page: 1, PageSize: 10, Total: 12, TotalPages: 2}, page.Pagination)

	second, err := svc.ListComments(ctx, ListCommentsParams{WorkID: testWorkID, Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Comments, 2)

	other, err := svc.ListComments(ctx, ListCommentsParams{WorkID: 2})
	require.NoError(t, err)
	assert.NotNil(t, other.Comments)
	assert.Empty(t, other.Comments)
	assert.Equal(t, 0, other.Pagination.TotalPages)
}

func TestListComments_HugePageDoesNotOverflow(t *testing.T) {
	svc, _ := newTestService(t)
	createComment(t, svc, "only one")

	var page *CommentsPage
	var err error
	require.NotPanics(t, func() {
		page, err = svc.ListComments(context.Background(), ListCommentsParams{WorkID: testWorkID, Page: math.MaxInt64 / 5})
	})
	require.NoError(t, err)
	assert.NotNil(t, page.Comments)
	assert.Empty(t, page.Comments)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

func TestListComments_SortByUpvotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := createComment(t, svc, "a")
	b := createComment(t, svc, "b")

	_, err := svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: b.ID, NewVote: domain.VoteUp})
	require.NoError(t, err)

	page, err := svc.ListComments(ctx, ListCommentsParams{WorkID: testWorkID, SortBy: storage.SortUpvotes, SortOrder: domain.SortDesc})
	require.NoError(t, err)
	require.Len(t, page.Comments, 2)
	assert.Equal(t, b.ID, page.Comments[0].ID)
	assert.Equal(t, a.ID, page.Comments[1].ID)
}

func TestListComments_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []ListCommentsParams{
		{WorkID: 0},
		{WorkID: testWorkID, Page: -2},
		{WorkID: testWorkID, PageSize: MaxPageSize + 1},
		{WorkID: testWorkID, SortBy: "authorName"},
		{WorkID: testWorkID, SortOrder: "up"},
	}
	for _, p := range cases {
		_, err := svc.ListComments(ctx, p)
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
}

func TestVote_HiddenCommentExcludedButStored(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	c := createComment(t, svc, "controversial")
	createComment(t, svc, "calm")

	var res *VoteResult
	var err error
	for i := 0; i < HideThreshold; i++ {
		res, err = svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteDown, PrevVote: votePtr(domain.VoteNone)})
		require.NoError(t, err)
	}
	assert.Equal(t, "Vote updated successfully", res.Message)
	assert.Equal(t, HideThreshold, res.Comment.Downvotes)
	assert.True(t, res.Comment.IsHidden)

	page, err := svc.ListComments(ctx, ListCommentsParams{WorkID: testWorkID})
	require.NoError(t, err)
	assert.Len(t, page.Comments, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)

	stored, err := store.GetCommentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsHidden)

	// Отмена одного дизлайка снова показывает комментарий
	res, err = svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteNone, PrevVote: votePtr(domain.VoteDown)})
	require.NoError(t, err)
	assert.False(t, res.Comment.IsHidden)

	page, err = svc.ListComments(ctx, ListCommentsParams{WorkID: testWorkID})
	require.NoError(t, err)
	assert.Len(t, page.Comments, 2)
}

func TestVote_LedgerIsAuthoritative(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	c := createComment(t, svc, "x")
	voter := "7d1c2b7e-5f2a-4c0e-8d59-2f1d4a3b6c11"

	res, err := svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteUp, VoterID: voter})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Comment.Upvotes)

	// Повтор того же голоса с неверным prevVoteType ничего не меняет
	res, err = svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteUp, PrevVote: votePtr(domain.VoteNone), VoterID: voter})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Comment.Upvotes)

	res, err = svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteDown, VoterID: voter})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Comment.Upvotes)
	assert.Equal(t, 1, res.Comment.Downvotes)
	assert.Equal(t, domain.VoteDown, store.RecordedVote(c.ID, voter))

	_, err = svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteNone, VoterID: voter})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteNone, store.RecordedVote(c.ID, voter))
}

func TestVote_ConcurrentVotesNotLost(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createComment(t, svc, "popular")

	const voters = 50
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteUp})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	page, err := svc.ListComments(ctx, ListCommentsParams{WorkID: testWorkID})
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, voters, page.Comments[0].Upvotes)
}

func TestVote_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createComment(t, svc, "x")

	cases := map[string]VoteInput{
		"bad new vote":  {WorkID: testWorkID, CommentID: c.ID, NewVote: 2},
		"bad prev vote": {WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteUp, PrevVote: votePtr(-3)},
		"zero work":     {WorkID: 0, CommentID: c.ID, NewVote: domain.VoteUp},
		"bad voter":     {WorkID: testWorkID, CommentID: c.ID, NewVote: domain.VoteUp, VoterID: "not-a-uuid"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Vote(ctx, in)
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestVote_CommentNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createComment(t, svc, "x")

	_, err := svc.Vote(ctx, VoteInput{WorkID: testWorkID, CommentID: 999, NewVote: domain.VoteUp})
	assert.ErrorIs(t, err, ErrCommentNotFound)

	// Комментарий существует, но у другой работы
	_, err = svc.Vote(ctx, VoteInput{WorkID: 2, CommentID: c.ID, NewVote: domain.VoteUp})
	assert.ErrorIs(t, err, ErrCommentNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestVote_StorageFailureIsDistinct(t *testing.T) {
	_, store := newTestService(t)
	log, hook := logtest.NewNullLogger()
	cause := errors.New("deadlock detected")
	svc := NewService(&failingStore{Storage: store, err: cause}, nil, log)

	_, err := svc.Vote(context.Background(), VoteInput{WorkID: testWorkID, CommentID: 1, NewVote: domain.VoteUp})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

type failingStore struct {
	storage.Storage
	err error
}

func (f *failingStore) MutateCommentVotes(ctx context.Context, commentID, workID int64, voterID string, fn storage.VoteMutation) (*domain.Comment, error) {
	return nil, f.err
}
