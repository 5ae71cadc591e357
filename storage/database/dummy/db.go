package dummydb

import (
	"sync"

	"github.com/klasshero/backend/core/enrollment"
	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/participation"
	"github.com/klasshero/backend/core/program"
	"github.com/klasshero/backend/core/user"
)

type (
	DB struct {
		user          *userTable
		family        *familyTable
		program       *programTable
		enrollment    *enrollmentTable
		participation *participationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	familyTable struct {
		sync.RWMutex
		profiles map[string]*family.ParentProfile
		children map[string]*family.Child
	}

	programTable struct {
		sync.RWMutex
		programs map[string]*program.Program
		sessions map[string]*program.Session
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enrollment.Enrollment
		usage map[string]int // key: parentID + "/" + month
	}

	participationTable struct {
		sync.RWMutex
		table map[string]*participation.Record
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:          &userTable{table: make(map[string]*user.User)},
		family:        &familyTable{profiles: make(map[string]*family.ParentProfile), children: make(map[string]*family.Child)},
		program:       &programTable{programs: make(map[string]*program.Program), sessions: make(map[string]*program.Session)},
		enrollment:    &enrollmentTable{table: make(map[string]*enrollment.Enrollment), usage: make(map[string]int)},
		participation: &participationTable{table: make(map[string]*participation.Record)},
	}
	return db, nil
}
