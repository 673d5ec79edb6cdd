package article

import (
	"sync"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// Projection は1つのビューが保持する記事一覧のスナップショットを管理する。
//
// バックエンドが唯一の真実であり、この一覧は直近の取得結果の投影にすぎない。
// 変更操作が成功した後にだけApply*で投影へ反映することで、次の再取得までの間も
// 一覧と変更結果の整合が保たれる。並べ替えは行わない（順序が必要なら再取得する）。
type Projection struct {
	mu       sync.Mutex
	articles []model.Article
	// nextToken はBeginFetchが発行する単調増加トークン。
	// 最新のトークンを持つ取得だけがCompleteFetchで反映され、
	// 追い越された古い取得結果は破棄される。
	nextToken    uint64
	currentToken uint64
}

// NewProjection は空のProjectionを生成する。
func NewProjection() *Projection {
	return &Projection{}
}

// FetchToken は進行中の取得を識別するトークン。
type FetchToken struct {
	value uint64
}

// BeginFetch は新しい取得の開始を宣言し、トークンを発行する。
// 以降に発行されたトークンがある場合、このトークンでのCompleteFetchは無視される。
func (p *Projection) BeginFetch() FetchToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextToken++
	p.currentToken = p.nextToken
	return FetchToken{value: p.nextToken}
}

// CompleteFetch は取得結果を投影に反映する。
// トークンが最新でない場合（後続の取得が始まっている、またはInvalidate済み）、
// 結果は破棄されfalseを返す。
func (p *Projection) CompleteFetch(token FetchToken, articles []model.Article) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if token.value != p.currentToken {
		return false
	}
	p.articles = make([]model.Article, len(articles))
	copy(p.articles, articles)
	return true
}

// Invalidate は保持中の一覧と進行中の取得を無効化する。
// ビューの切り替え時に呼び、切り替え前の取得結果が新しいビューに
// 紛れ込むのを防ぐ。
func (p *Projection) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.articles = nil
	p.currentToken = 0
}

// ApplyDelete は削除成功後に一覧から該当IDの記事を取り除く。
// 一致は文字列IDの等価比較で、残る要素の順序は維持される。
func (p *Projection) ApplyDelete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	filtered := p.articles[:0]
	for _, a := range p.articles {
		if a.ID != id {
			filtered = append(filtered, a)
		}
	}
	p.articles = filtered
}

// ApplyCreateOrUpdate は作成・更新成功後の記事を一覧に反映する。
// 既知のIDはその位置で置き換え、未知のIDは末尾に追加する。
func (p *Projection) ApplyCreateOrUpdate(article model.Article) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, a := range p.articles {
		if a.ID == article.ID {
			p.articles[i] = article
			return
		}
	}
	p.articles = append(p.articles, article)
}

// Articles は保持中の一覧のコピーを返す。
func (p *Projection) Articles() []model.Article {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := make([]model.Article, len(p.articles))
	copy(snapshot, p.articles)
	return snapshot
}

// Len は保持中の件数を返す。
func (p *Projection) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.articles)
}
