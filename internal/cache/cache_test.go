package cache

import (
	"html/template"
	"sort"
	"sync"
	"testing"
)

func TestCache_GetSetTake(t *testing.T) {
	c := NewCache[string, int]()

	if _, ok := c.Get("missing"); ok {
		t.Error("Expected missing key to be absent")
	}

	c.Set("a", 1)
	c.Set("a", 2)
	if got, ok := c.Get("a"); !ok || got != 2 {
		t.Errorf("Expected 2, got %d (ok=%v)", got, ok)
	}

	c.Take("a")
	c.Take("never-set")
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d items", c.Len())
	}
}

func TestCache_Update(t *testing.T) {
	c := NewCache[string, []string]()

	first := c.Update("thread", func(current []string, ok bool) []string {
		if ok {
			t.Error("Expected no current value on first update")
		}
		return append(current, "one")
	})
	if len(first) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(first))
	}

	c.Update("thread", func(current []string, ok bool) []string {
		if !ok {
			t.Error("Expected the current value on second update")
		}
		return append(current, "two")
	})

	got, _ := c.Get("thread")
	if len(got) != 2 || got[1] != "two" {
		t.Errorf("Expected [one two], got %v", got)
	}
}

func TestCache_UpdateIsAtomic(t *testing.T) {
	c := NewCache[string, int]()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update("counter", func(n int, _ bool) int { return n + 1 })
		}()
	}
	wg.Wait()

	if got, _ := c.Get("counter"); got != 100 {
		t.Errorf("Expected 100 increments, got %d", got)
	}
}

func TestCache_TakeAndDrain(t *testing.T) {
	c := NewCache[string, int]()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if v, ok := c.Take("a"); !ok || v != 1 {
		t.Errorf("Expected to take 1, got %d (ok=%v)", v, ok)
	}
	if _, ok := c.Take("a"); ok {
		t.Error("Expected a taken key to be gone")
	}

	values := c.Drain()
	sort.Ints(values)
	if len(values) != 2 || values[0] != 2 || values[1] != 3 {
		t.Errorf("Expected [2 3], got %v", values)
	}
	if c.Len() != 0 {
		t.Errorf("Expected drained cache to be empty, got %d", c.Len())
	}

	c.Set("d", 4)
	if got, ok := c.Get("d"); !ok || got != 4 {
		t.Error("Expected a drained cache to stay usable")
	}
}

func TestCache_ValuesSnapshot(t *testing.T) {
	c := NewCache[string, int]()
	c.Set("a", 1)
	c.Set("b", 2)

	values := c.Values()
	c.Set("c", 3)

	if len(values) != 2 {
		t.Errorf("Expected snapshot of 2 values, got %d", len(values))
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(n*100+j, j)
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(n*100 + j)
				c.Values()
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Take(n*100 + j)
			}
		}(i)
	}
	wg.Wait()
}

func TestStaticAndSyntaxCaches(t *testing.T) {
	SetStaticHash("/static/test.css", "abc")
	if got, ok := GetStaticHash("/static/test.css"); !ok || got != "abc" {
		t.Errorf("Expected static hash 'abc', got %q", got)
	}

	css := template.CSS(".chroma { color: red }")
	SetSyntaxCSS("test-theme", css)
	if got, ok := GetSyntaxCSS("test-theme"); !ok || got != css {
		t.Errorf("Expected cached CSS, got %q", got)
	}
}

func BenchmarkCache_Update(b *testing.B) {
	c := NewCache[int, int]()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Update(i%64, func(n int, _ bool) int { return n + 1 })
			i++
		}
	})
}
