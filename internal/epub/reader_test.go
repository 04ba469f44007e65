package epub

import (
	"errors"
	"testing"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{
			name: "document at archive root",
			base: "content.opf",
			href: "text/ch1.xhtml",
			want: "text/ch1.xhtml",
		},
		{
			name: "nested base",
			base: "OEBPS/content.opf",
			href: "text/ch1.xhtml",
			want: "OEBPS/text/ch1.xhtml",
		},
		{
			name: "parent directory",
			base: "OEBPS/text/ch1.xhtml",
			href: "../images/pic.png",
			want: "OEBPS/images/pic.png",
		},
		{
			name: "dot segment",
			base: "OEBPS/text/ch1.xhtml",
			href: "./ch2.xhtml",
			want: "OEBPS/text/ch2.xhtml",
		},
		{
			name: "archive absolute",
			base: "OEBPS/text/ch1.xhtml",
			href: "/OEBPS/images/pic.png",
			want: "OEBPS/images/pic.png",
		},
		{
			name: "percent escaped",
			base: "OEBPS/content.opf",
			href: "text/my%20chapter.xhtml",
			want: "OEBPS/text/my chapter.xhtml",
		},
		{
			name: "query string",
			base: "OEBPS/text/ch1.xhtml",
			href: "../images/pic.png?v=2",
			want: "OEBPS/images/pic.png",
		},
		{
			name: "escaped question mark",
			base: "OEBPS/content.opf",
			href: "text/why%3F.xhtml",
			want: "OEBPS/text/why?.xhtml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Locate(tt.base, tt.href)
			if got != tt.want {
				t.Errorf("Locate(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
			}
			if again := Locate(tt.base, tt.href); again != got {
				t.Errorf("Locate() is not stable: %q then %q", got, again)
			}
		})
	}
}

func TestSplitFragment(t *testing.T) {
	tests := []struct {
		src          string
		wantPath     string
		wantFragment string
	}{
		{"chapter1.xhtml#sec1", "chapter1.xhtml", "sec1"},
		{"chapter1.xhtml", "chapter1.xhtml", ""},
		{"#sec1", "", "sec1"},
		{"", "", ""},
		{"chapter1.xhtml#sec1#subsec2", "chapter1.xhtml", "sec1#subsec2"},
	}

	for _, tt := range tests {
		gotPath, gotFragment := splitFragment(tt.src)
		if gotPath != tt.wantPath || gotFragment != tt.wantFragment {
			t.Errorf("splitFragment(%q) = (%q, %q), want (%q, %q)",
				tt.src, gotPath, gotFragment, tt.wantPath, tt.wantFragment)
		}
	}
}

func TestArchive_Read(t *testing.T) {
	a, err := NewArchive(buildTestEPUB(t, defaultTestFiles()))
	if err != nil {
		t.Fatalf("NewArchive() error = %v", err)
	}

	css, err := a.ReadString("OEBPS/styles/a.css")
	if err != nil {
		t.Fatalf("ReadString() error = %v", err)
	}
	if css != "p { margin: 0 }" {
		t.Errorf("ReadString() = %q", css)
	}

	if !a.Has("./OEBPS/content.opf") {
		t.Error("Has() should normalize a ./ prefix")
	}
}

func TestArchive_ReadNotFound(t *testing.T) {
	a, err := NewArchive(buildTestEPUB(t, defaultTestFiles()))
	if err != nil {
		t.Fatalf("NewArchive() error = %v", err)
	}
	_, err = a.Read("OEBPS/missing.xhtml")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestNewArchive_NotZip(t *testing.T) {
	if _, err := NewArchive([]byte("not a zip")); err == nil {
		t.Fatal("NewArchive() should fail for non-zip data")
	}
}

func TestArchive_Names(t *testing.T) {
	a, err := NewArchive(buildTestEPUB(t, defaultTestFiles()))
	if err != nil {
		t.Fatalf("NewArchive() error = %v", err)
	}
	names := a.Names()
	if len(names) != len(defaultTestFiles())+1 {
		t.Fatalf("Names() returned %d entries", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "OEBPS/text/ch1.xhtml", want: "OEBPS/text/ch1.xhtml"},
		{in: "OEBPS/my text/ch 1.xhtml", want: "OEBPS/my%20text/ch%201.xhtml"},
		{in: "why?.xhtml", want: "why%3F.xhtml"},
	}
	for _, tt := range tests {
		got := EscapePath(tt.in)
		if got != tt.want {
			t.Errorf("EscapePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if back := Locate("content.opf", got); back != tt.in {
			t.Errorf("Locate(EscapePath(%q)) = %q", tt.in, back)
		}
	}
}
