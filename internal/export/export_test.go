package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type recordingWriter struct {
	mu      sync.Mutex
	batches [][]*models.Product
	err     error
}

func (w *recordingWriter) Write(products []*models.Product) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, products)
	return w.err
}

func product(i int) *models.Product {
	p := models.NewProduct(fmt.Sprintf("https://www.screwfix.com/p/item/%d", i))
	p.Name = fmt.Sprintf("Item %d", i)
	p.SKU = fmt.Sprint(i)
	return p
}

func TestAccumulatorFlushesFullSetEveryBatch(t *testing.T) {
	w := &recordingWriter{}
	flushed := 0
	acc := NewAccumulator(20, nil, []Writer{w}, WithFlushHook(func(int) { flushed++ }))

	for i := 0; i < 45; i++ {
		require.NoError(t, acc.Add(product(i)))
	}

	require.Len(t, w.batches, 2)
	assert.Len(t, w.batches[0], 20)
	assert.Len(t, w.batches[1], 40)

	require.NoError(t, acc.Flush())
	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[2], 45)
	assert.Equal(t, 3, flushed)
}

func TestAccumulatorReplacesRescrapedRecords(t *testing.T) {
	w := &recordingWriter{}
	acc := NewAccumulator(0, nil, []Writer{w})

	first := product(1)
	updated := product(1)
	updated.Brand = "Tarmac"

	require.NoError(t, acc.Add(first))
	require.NoError(t, acc.Add(product(2)))
	require.NoError(t, acc.Add(updated))

	records := acc.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Tarmac", records[0].Brand)
	assert.Equal(t, 2, acc.Len())
}

func TestAccumulatorConcurrentAdds(t *testing.T) {
	w := &recordingWriter{}
	acc := NewAccumulator(20, nil, []Writer{w})

	var wg sync.WaitGroup
	for worker := 0; worker < 4; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = acc.Add(product(worker*100 + i))
			}
		}(worker)
	}
	wg.Wait()

	assert.Equal(t, 100, acc.Len())
	assert.Len(t, w.batches, 5)
}

func TestAccumulatorReportsWriterErrors(t *testing.T) {
	failing := &recordingWriter{err: errors.New("disk full")}
	ok := &recordingWriter{}
	acc := NewAccumulator(1, nil, []Writer{failing, ok})

	err := acc.Add(product(1))

	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, ok.batches, 1)
}

func sampleRecords() []*models.Product {
	p := product(7)
	p.PriceIncVAT = 54.99
	p.Images = []string{"https://media/a.jpg", "https://media/b.jpg"}
	p.Volume = models.CalculatedVolume(0.02)
	p.Description = "Line one\n\nKey Features:\n• Tough, durable"
	return []*models.Product{p, product(8)}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "screwfix_products.csv")

	require.NoError(t, NewCSVWriter(path).Write(sampleRecords()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Item 7", rows[1][0])
	assert.Equal(t, "https://www.screwfix.com/p/item/7", rows[1][1])
	assert.Equal(t, "54.99", rows[1][4])
	assert.Equal(t, "https://media/a.jpg, https://media/b.jpg", rows[1][5])
	assert.Equal(t, "0.020000 m3 (Calculated)", rows[1][11])
	assert.Equal(t, "Line one\n\nKey Features:\n• Tough, durable", rows[1][18])
	assert.Equal(t, "N/A", rows[2][5])
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screwfix_products.xlsx")

	require.NoError(t, NewXLSXWriter(path).Write(sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Item 7", rows[1][0])
	assert.Equal(t, "54.99", rows[1][4])
	assert.Equal(t, "8", rows[2][2])
}

func TestRowMatchesHeader(t *testing.T) {
	assert.Len(t, Row(models.NewProduct("u")), len(Header))
}

func TestAccumulatorSkipsEmptyFlush(t *testing.T) {
	w := &recordingWriter{}
	acc := NewAccumulator(20, nil, []Writer{w})

	require.NoError(t, acc.Flush())
	assert.Empty(t, w.batches)
}
