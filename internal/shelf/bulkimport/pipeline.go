// Package bulkimport loads a pre-parsed collection export into the catalog
// and the wishlist. Book photos are read from <photos_dir>/<ref_no>,
// uploaded to the image store and attached in file order.
//
// All uploads finish before any row is written, and the rows go in with one
// transaction. An upload failure therefore leaves the database untouched;
// images uploaded before the failure are only logged.
package bulkimport

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/shelf/books"
	"bookshelf-backend/internal/shelf/wishlist"
)

const DefaultConcurrency = 4

// ImageStore は画像を保存して参照（パス/URL）を返す
type ImageStore interface {
	Store(ctx context.Context, data []byte, name string) (string, error)
}

// Sink writes the whole batch atomically.
type Sink interface {
	InsertAll(ctx context.Context, bs []books.Book, items []wishlist.Item) error
}

type Result struct {
	Message       string `json:"message"`
	BooksCount    int    `json:"booksCount"`
	WishlistCount int    `json:"wishlistCount"`
}

// -------------- ID --------------

type IDGen interface{ NewULID(t time.Time) string }

// ulid.Monotonic は goroutine セーフではないので、名前はアップロード前に直列で振る
type ulidGen struct{ entropy *ulid.MonotonicEntropy }

func newULIDGen() *ulidGen { return &ulidGen{entropy: ulid.Monotonic(rand.Reader, 0)} }

func (g *ulidGen) NewULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// -------------- Pipeline --------------

type Pipeline struct {
	photosDir   string
	images      ImageStore
	sink        Sink
	concurrency int
	id          IDGen
	now         func() time.Time
}

func NewPipeline(photosDir string, images ImageStore, sink Sink, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		photosDir:   photosDir,
		images:      images,
		sink:        sink,
		concurrency: concurrency,
		id:          newULIDGen(),
		now:         time.Now,
	}
}

type uploadJob struct {
	book  int
	slot  int
	path  string
	name  string
	refNo int
}

func (p *Pipeline) Run(ctx context.Context, owner int64, batch Batch) (Result, error) {
	for i, rec := range batch.Books {
		if rec.RefNo <= 0 {
			return Result{}, apierr.ErrInvalid(fmt.Sprintf("book record %d: Ref No. is required", i+1))
		}
		if clean(rec.Title) == "" || clean(rec.Author) == "" {
			return Result{}, apierr.ErrInvalid(fmt.Sprintf("book record %d (Ref No. %d): title and author are required", i+1, rec.RefNo))
		}
	}
	for i, rec := range batch.Wishlist {
		if rec.RefNo <= 0 {
			return Result{}, apierr.ErrInvalid(fmt.Sprintf("wishlist record %d: Ref No. is required", i+1))
		}
		if clean(rec.Title) == "" || clean(rec.Author) == "" {
			return Result{}, apierr.ErrInvalid(fmt.Sprintf("wishlist record %d (Ref No. %d): title and author are required", i+1, rec.RefNo))
		}
	}

	// 1) 画像の列挙。ディレクトリが読めない本は画像なしで続行
	images := make([][]string, len(batch.Books))
	var jobs []uploadJob
	for i, rec := range batch.Books {
		files, err := p.listImages(int(rec.RefNo))
		if err != nil {
			log.Printf("[INFO] no images found for book %d: %v", rec.RefNo, err)
			images[i] = []string{}
			continue
		}
		images[i] = make([]string, len(files))
		for j, path := range files {
			jobs = append(jobs, uploadJob{
				book:  i,
				slot:  j,
				path:  path,
				name:  uploadName(int(rec.RefNo), p.id.NewULID(p.now()), filepath.Base(path)),
				refNo: int(rec.RefNo),
			})
		}
	}

	// 2) アップロード（並列、順序は slot で保持）
	if err := p.upload(ctx, jobs, images); err != nil {
		log.Printf("[ERROR] bulk import aborted, nothing written: %v", err)
		return Result{}, apierr.ErrInternal("image upload failed")
	}

	// 3) 1Txで全件 INSERT
	bs := make([]books.Book, 0, len(batch.Books))
	for i, rec := range batch.Books {
		bs = append(bs, toBook(owner, rec, images[i]))
	}
	items := make([]wishlist.Item, 0, len(batch.Wishlist))
	for _, rec := range batch.Wishlist {
		items = append(items, toItem(owner, rec))
	}
	if err := p.sink.InsertAll(ctx, bs, items); err != nil {
		logOrphans(images)
		return Result{}, apierr.FromStore("bulk import", err)
	}

	log.Printf("[INFO] bulk import for owner %d: %d books, %d wishlist items, %d images",
		owner, len(bs), len(items), len(jobs))
	return Result{
		Message:       "Bulk upload completed successfully",
		BooksCount:    len(bs),
		WishlistCount: len(items),
	}, nil
}

func (p *Pipeline) upload(ctx context.Context, jobs []uploadJob, images [][]string) error {
	if len(jobs) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			data, err := os.ReadFile(job.path)
			if err != nil {
				return fmt.Errorf("read image %s: %w", job.path, err)
			}
			ref, err := p.images.Store(gctx, data, job.name)
			if err != nil {
				return fmt.Errorf("upload image for book %d (%s): %w", job.refNo, job.name, err)
			}
			if strings.TrimSpace(ref) == "" || strings.Contains(ref, ",") {
				return fmt.Errorf("upload image for book %d (%s): unusable reference %q", job.refNo, job.name, ref)
			}
			// slot ごとに別の要素なので排他は不要
			images[job.book][job.slot] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logOrphans(images)
		return err
	}
	return nil
}

var imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)$`)

// listImages はファイル名順（os.ReadDir の順）の画像パスを返す。上限を超えた分は捨てる
func (p *Pipeline) listImages(refNo int) ([]string, error) {
	dir := filepath.Join(p.photosDir, strconv.Itoa(refNo))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !imageExt.MatchString(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	if len(out) > books.MaxImages {
		log.Printf("[WARN] book %d has %d images, keeping the first %d", refNo, len(out), books.MaxImages)
		out = out[:books.MaxImages]
	}
	return out, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// uploadName: <ref_no>_<ulid>_<元のファイル名（空白は _）>
func uploadName(refNo int, id, base string) string {
	return fmt.Sprintf("%d_%s_%s", refNo, id, whitespace.ReplaceAllString(base, "_"))
}

func logOrphans(images [][]string) {
	for _, refs := range images {
		for _, ref := range refs {
			if ref != "" {
				log.Printf("[WARN] orphaned upload: %s", ref)
			}
		}
	}
}

func toBook(owner int64, rec BookRecord, images []string) books.Book {
	series := clean(rec.SeriesName)
	b := books.Book{
		UserID:        owner,
		RefNo:         int(rec.RefNo),
		Title:         clean(rec.Title),
		Author:        clean(rec.Author),
		SeriesName:    books.ToNullString(&series),
		ReadingStatus: books.ReadingUnread,
		LendingStatus: books.LendingAvailable,
		Images:        images,
	}
	if rec.SeriesNo.Value != nil {
		b.SeriesNo.Valid, b.SeriesNo.Int64 = true, int64(*rec.SeriesNo.Value)
	}
	return b
}

func toItem(owner int64, rec WishlistRecord) wishlist.Item {
	series, remarks := clean(rec.SeriesName), clean(rec.Remarks)
	it := wishlist.Item{
		UserID:     owner,
		RefNo:      int(rec.RefNo),
		Title:      clean(rec.Title),
		Author:     clean(rec.Author),
		SeriesName: books.ToNullString(&series),
		Remarks:    books.ToNullString(&remarks),
	}
	if rec.SeriesNo.Value != nil {
		it.SeriesNo.Valid, it.SeriesNo.Int64 = true, int64(*rec.SeriesNo.Value)
	}
	return it
}

// Summary は取り込み内容を1行で表す（CLI 出力用）
func (r Result) Summary() string {
	return fmt.Sprintf("%s: %d books, %d wishlist items", r.Message, r.BooksCount, r.WishlistCount)
}
