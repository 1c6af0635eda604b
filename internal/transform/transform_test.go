// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrapy/migrapy/internal/cst"
)

func apply(t *testing.T, tr *Transformer, src string) (string, []Applied) {
	t.Helper()
	tree, err := cst.Parse([]byte(src))
	require.NoError(t, err)
	next, applied, err := tr.Apply(tree, "")
	require.NoError(t, err)
	return string(next.Render()), applied
}

func TestPydanticMethodRename(t *testing.T) {
	src := "from pydantic import Model\nu = Model()\nd = u.dict()\nj = u.json()\n"
	out, applied := apply(t, Pydantic(), src)
	assert.Contains(t, out, "u.model_dump()")
	assert.Contains(t, out, "u.model_dump_json()")
	assert.Len(t, applied, 2)
}

func TestPydanticValidatorDecorator(t *testing.T) {
	src := "from pydantic import BaseModel\n\n\nclass U(BaseModel):\n    @validator(\"age\", pre=True)\n    def v(cls, x):\n        return x\n"
	out, _ := apply(t, Pydantic(), src)
	assert.Contains(t, out, `@field_validator("age", mode="before")`)
	assert.Contains(t, out, "@classmethod")
	assert.Contains(t, out, "field_validator")

	// Second run is a no-op (idempotence, testable property 3/4).
	out2, applied2 := apply(t, Pydantic(), out)
	assert.Equal(t, out, out2)
	assert.Empty(t, applied2)
}

func TestPydanticConfigRestructure(t *testing.T) {
	src := "from pydantic import BaseModel\n\n\nclass U(BaseModel):\n    class Config:\n        orm_mode = True\n        allow_mutation = False\n"
	out, _ := apply(t, Pydantic(), src)
	assert.Contains(t, out, "model_config = ConfigDict(from_attributes=True, frozen=True)")
	assert.NotContains(t, out, "class Config")
	assert.Contains(t, out, "ConfigDict")
}

func TestSQLAlchemyQueryChainFirst(t *testing.T) {
	src := "import sqlalchemy\nr = session.query(U).filter(U.id==1).first()\n"
	out, _ := apply(t, SQLAlchemy(), src)
	assert.Contains(t, out, "session.execute(select(U).where(U.id==1)).scalars().first()")
}

func TestSQLAlchemyQueryChainUsesActualReceiver(t *testing.T) {
	src := "import sqlalchemy\nn = db.query(U).first()\n"
	out, _ := apply(t, SQLAlchemy(), src)
	assert.Contains(t, out, "db.execute(select(U)).scalars().first()")
	assert.NotContains(t, out, "session.execute")
}

func TestSQLAlchemyQueryChainCount(t *testing.T) {
	src := "import sqlalchemy\nn = session.query(U).count()\n"
	out, _ := apply(t, SQLAlchemy(), src)
	assert.Contains(t, out, "session.execute(select(func.count()).select_from(U)).scalar()")
}

func TestSQLAlchemyQueryChainNotAppliedWithoutLibraryImport(t *testing.T) {
	src := "n = session.query(U).count()\n"
	out, applied := apply(t, SQLAlchemy(), src)
	assert.Equal(t, src, out)
	assert.Empty(t, applied)
}

func TestSQLAlchemyCallWrapping(t *testing.T) {
	src := "from sqlalchemy import text\n" + `conn.execute("SELECT 1")` + "\n"
	out, _ := apply(t, SQLAlchemy(), src)
	assert.Contains(t, out, `conn.execute(text("SELECT 1"))`)
}

func TestSQLAlchemyArgumentRemove(t *testing.T) {
	src := `create_engine("sqlite:///x", future=True)` + "\n"
	out, _ := apply(t, SQLAlchemy(), src)
	assert.Equal(t, `create_engine("sqlite:///x")`+"\n", out)
	assert.False(t, strings.Contains(out, "future"))
}

func TestStarletteImportMoveExcludesStatus(t *testing.T) {
	src := "from starlette.responses import JSONResponse\nfrom starlette.status import HTTP_200_OK\n"
	out, _ := apply(t, Starlette(), src)
	assert.Contains(t, out, "from fastapi.responses import JSONResponse")
	assert.Contains(t, out, "from starlette.status import HTTP_200_OK")
}
