// Package progress は練習セッションのポイントからグループとメンバーの統計を算出する。
// 統計は読み取り時に毎回計算し、保存された状態は変更しない。
package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/nrityalens/nrityalens/internal/model"
)

// GroupFinder はグループをメンバー付きで取得するインターフェース。
type GroupFinder interface {
	FindByID(ctx context.Context, id string) (*model.Group, error)
}

// SessionLister はclerkIdごとのセッションを追記順で取得するインターフェース。
type SessionLister interface {
	ListSessionsByClerkIDs(ctx context.Context, clerkIDs []string) (map[string][]model.Session, error)
}

// MemberSummary はグループ統計に含めるメンバーごとの集計。
type MemberSummary struct {
	ClerkID     string
	Name        string
	TotalPoints float64
	Sessions    int
}

// GroupSummary はグループ全体の統計。
// 全メンバーのセッションポイントを参加順、追記順に連結した系列から算出する。
// AverageとMeanは同じ値。
type GroupSummary struct {
	Average         float64
	Mean            float64
	Median          float64
	Mode            float64
	MemberSummaries []MemberSummary
}

// MemberDetail は1メンバーの統計とセッション一覧。
type MemberDetail struct {
	Member        model.Member
	TotalPoints   float64
	SessionsCount int
	Average       float64
	Median        float64
	Mode          float64
	Sessions      []model.Session
}

// Service は統計算出のサービス層。
type Service struct {
	groups   GroupFinder
	sessions SessionLister
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(groups GroupFinder, sessions SessionLister) *Service {
	return &Service{groups: groups, sessions: sessions}
}

// GroupSummary はグループ全体の統計を返す。
// セッションのないメンバーは集計に合計0で含まれるが、統計の系列には値を追加しない。
func (s *Service) GroupSummary(ctx context.Context, groupID string) (*GroupSummary, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	byClerk, err := s.sessions.ListSessionsByClerkIDs(ctx, memberIDs(group.Members))
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}

	var pool []float64
	summaries := make([]MemberSummary, 0, len(group.Members))
	for _, m := range group.Members {
		points := pointsOf(byClerk[m.ClerkID])
		pool = append(pool, points...)
		summaries = append(summaries, MemberSummary{
			ClerkID:     m.ClerkID,
			Name:        m.Name,
			TotalPoints: Sum(points),
			Sessions:    len(points),
		})
	}

	mean := Mean(pool)
	return &GroupSummary{
		Average:         mean,
		Mean:            mean,
		Median:          Median(pool),
		Mode:            Mode(pool),
		MemberSummaries: summaries,
	}, nil
}

// MemberDetail は1メンバーの統計を返す。
// clerkIdがグループのメンバーでない場合は、ユーザーが存在していてもメンバー不在エラーを返す。
func (s *Service) MemberDetail(ctx context.Context, groupID, clerkID string) (*MemberDetail, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return nil, model.NewMissingFieldError("clerkId")
	}

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var member *model.Member
	for i := range group.Members {
		if group.Members[i].ClerkID == clerkID {
			member = &group.Members[i]
			break
		}
	}
	if member == nil {
		return nil, model.NewMemberNotInGroupError()
	}

	byClerk, err := s.sessions.ListSessionsByClerkIDs(ctx, []string{clerkID})
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	sessions := byClerk[clerkID]
	if sessions == nil {
		sessions = []model.Session{}
	}
	points := pointsOf(sessions)

	return &MemberDetail{
		Member:        *member,
		TotalPoints:   Sum(points),
		SessionsCount: len(sessions),
		Average:       Mean(points),
		Median:        Median(points),
		Mode:          Mode(points),
		Sessions:      sessions,
	}, nil
}

func (s *Service) findGroup(ctx context.Context, groupID string) (*model.Group, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("グループの取得に失敗しました: %w", err)
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError()
	}
	return group, nil
}

func memberIDs(members []model.Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ClerkID
	}
	return ids
}

func pointsOf(sessions []model.Session) []float64 {
	points := make([]float64, len(sessions))
	for i, s := range sessions {
		points[i] = s.Points
	}
	return points
}
