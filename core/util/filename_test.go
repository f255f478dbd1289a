package util

import (
	"testing"
)

func TestStripSegmentName(t *testing.T) {
	s := StripSegmentName("_0.fnm")
	if s != ".fnm" {
		t.Errorf("Expected '.fnm' but was '%v'", s)
	}

	s = StripSegmentName("_0_Lucene41_0.doc")
	if s != "_Lucene41_0.doc" {
		t.Errorf("Expected '_Lucene41_0.doc', but was '%v'", s)
	}
}

func TestSegmentFileNames(t *testing.T) {
	if s := SegmentFileName("_0", "", "cfs"); s != "_0.cfs" {
		t.Errorf("Expected '_0.cfs' but was '%v'", s)
	}
	if s := SegmentFileName("_0", "Lucene41_0", "doc"); s != "_0_Lucene41_0.doc" {
		t.Errorf("Expected '_0_Lucene41_0.doc' but was '%v'", s)
	}
	if s := ParseSegmentName("_12.fdt"); s != "_12" {
		t.Errorf("Expected '_12' but was '%v'", s)
	}
	if s := StripSegmentName(""); s != "" {
		t.Errorf("Expected empty name but was '%v'", s)
	}
	if s := FileExtension("_0.cfe"); s != "cfe" {
		t.Errorf("Expected 'cfe' but was '%v'", s)
	}
}
